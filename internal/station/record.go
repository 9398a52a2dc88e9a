package station

import (
	"strconv"
	"strings"
	"time"
)

// recordColumns is the number of '|' separated columns in a record line:
// category|statistic|period|qualifier|channel|unit|value
const recordColumns = 7

// Column names accepted by RecordSet.Column.
const (
	ColCategory  = "category"
	ColStatistic = "statistic"
	ColPeriod    = "period"
	ColQualifier = "qualifier"
	ColChannel   = "channel"
	ColUnit      = "unit"
	ColValue     = "value"
)

// Record is one measurement line of a frame, e.g. "TA|AVG|PT1M||1|degC|:22.2;".
type Record struct {
	Category  string
	Statistic string
	// Period is empty for instantaneous values.
	Period    string
	Qualifier string
	Channel   int
	Unit      string
	// Value is the raw value column including separators and trailing noise.
	Value string
}

// RecordSet is an ordered, read-only set of records indexable by row and column.
type RecordSet struct {
	records []Record
}

// NewRecordSet wraps records, preserving their order.
func NewRecordSet(records []Record) *RecordSet {
	return &RecordSet{records: records}
}

// Len returns the number of records.
func (s *RecordSet) Len() int { return len(s.records) }

// Row returns the i-th record in frame order.
func (s *RecordSet) Row(i int) Record { return s.records[i] }

// Column returns every record's value for the named column, in frame order.
// The second result is false for an unknown column name.
func (s *RecordSet) Column(name string) ([]string, bool) {
	var get func(Record) string
	switch name {
	case ColCategory:
		get = func(r Record) string { return r.Category }
	case ColStatistic:
		get = func(r Record) string { return r.Statistic }
	case ColPeriod:
		get = func(r Record) string { return r.Period }
	case ColQualifier:
		get = func(r Record) string { return r.Qualifier }
	case ColChannel:
		get = func(r Record) string { return strconv.Itoa(r.Channel) }
	case ColUnit:
		get = func(r Record) string { return r.Unit }
	case ColValue:
		get = func(r Record) string { return r.Value }
	default:
		return nil, false
	}

	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = get(r)
	}
	return out, true
}

// Select returns the records matching category and statistic, in frame
// order. When matchPeriod is true the period column must equal period too.
func (s *RecordSet) Select(category, statistic, period string, matchPeriod bool) []Record {
	var out []Record
	for _, r := range s.records {
		if r.Category != category || r.Statistic != statistic {
			continue
		}
		if matchPeriod && r.Period != period {
			continue
		}
		out = append(out, r)
	}
	return out
}

// HeaderField is one KEY:VALUE line from the start of a frame.
type HeaderField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Header holds the KEY:VALUE lines that precede the records.
//
// Known keys: S (station model), D (YYMMDD), T (HHMMSS), UT (unix seconds),
// STNID, MSGID, ALT, LAT, LON.
type Header struct {
	Fields []HeaderField `json:"fields"`
}

// Get returns the value of the first field named key.
func (h Header) Get(key string) (string, bool) {
	for _, f := range h.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (h Header) value(key string) string {
	v, _ := h.Get(key)
	return v
}

// StationModel returns the S field, e.g. "AWS310_LSST".
func (h Header) StationModel() string { return h.value("S") }

// StationID returns the STNID field.
func (h Header) StationID() string { return h.value("STNID") }

// MessageID returns the MSGID field.
func (h Header) MessageID() string { return h.value("MSGID") }

// Time returns the measurement time, preferring UT and falling back to D and T
// (interpreted as UTC). ok is false when neither is usable.
func (h Header) Time() (t time.Time, ok bool) {
	if ut, found := h.Get("UT"); found {
		if sec, err := strconv.ParseInt(ut, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC(), true
		}
	}
	d, dok := h.Get("D")
	clock, tok := h.Get("T")
	if dok && tok {
		if parsed, err := time.Parse("060102150405", d+clock); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Frame is a parsed station message.
type Frame struct {
	Header  Header
	Records *RecordSet
	// Text is the framed text the header and records were parsed from.
	Text string
}

// ParseFrame tokenizes framed text into a header and an ordered record set.
//
// Blank lines are skipped. KEY:VALUE lines without '|' are header fields
// while no record has been seen yet; every other line must split into
// exactly seven '|' columns with an integer channel. The first line that
// does not returns a *ParseError carrying it verbatim.
func ParseFrame(text string) (*Frame, error) {
	frame := &Frame{Text: text}
	var records []Record

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if line == "" {
			continue
		}

		if len(records) == 0 && !strings.Contains(line, "|") {
			field, ok := parseHeaderLine(line)
			if !ok {
				return nil, &ParseError{Line: raw, LineNo: i + 1, Text: text, Reason: "not a header field or record"}
			}
			frame.Header.Fields = append(frame.Header.Fields, field)
			continue
		}

		rec, reason := parseRecordLine(line)
		if reason != "" {
			return nil, &ParseError{Line: raw, LineNo: i + 1, Text: text, Reason: reason}
		}
		records = append(records, rec)
	}

	frame.Records = NewRecordSet(records)
	return frame, nil
}

// parseHeaderLine splits "KEY:VALUE;" into its parts.
func parseHeaderLine(line string) (HeaderField, bool) {
	key, value, found := strings.Cut(strings.TrimSuffix(line, string(RecordSeparator)), ":")
	key = strings.TrimSpace(key)
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return HeaderField{}, false
	}
	return HeaderField{Key: key, Value: strings.TrimSpace(value)}, true
}

// parseRecordLine tokenizes one record. A non-empty reason means failure.
func parseRecordLine(line string) (Record, string) {
	cols := strings.Split(line, "|")
	if len(cols) != recordColumns {
		return Record{}, "expected " + strconv.Itoa(recordColumns) + " columns, got " + strconv.Itoa(len(cols))
	}

	rec := Record{
		Category:  strings.TrimSpace(cols[0]),
		Statistic: strings.TrimSpace(cols[1]),
		Period:    strings.TrimSpace(cols[2]),
		Qualifier: strings.TrimSpace(cols[3]),
		Unit:      strings.TrimSpace(cols[5]),
		Value:     cols[6],
	}
	if rec.Category == "" || rec.Statistic == "" {
		return Record{}, "empty category or statistic"
	}

	ch, err := strconv.Atoi(strings.TrimSpace(cols[4]))
	if err != nil {
		return Record{}, "channel is not an integer"
	}
	rec.Channel = ch
	return rec, ""
}

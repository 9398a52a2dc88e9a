package station

// SimulationFrame is a complete AWS310 message as captured from the LSST
// station, including the "SMS 0" preamble before the start marker and the
// checksum after the end marker. Simulation mode decodes it every cycle.
const SimulationFrame = `SMS 0(S:AWS310_LSST;
D:190204;
T:160503;
UT:1549296303;
STNID:0;
MSGID:141106;
ALT:2500;
LAT:-30.2446;
LON:-70.7494;
WS|VALUE|||1|mps|:0.0;
WD|VALUE|||1|deg|:301;
WS|AVG|PT2M||1|mps|:0.1;
WS|MAX|PT2M||1|mps|:0.2;
WS|MIN|PT2M||1|mps|:0.0;
WS|AVG|PT10M||1|mps|:0.1;
WS|MAX|PT10M||1|mps|:0.2;
WS|MIN|PT10M||1|mps|:0.0;
WGD|VALUE|PT10M||10|deg|:186;
WD|AVG|PT2M||1|deg|:270;
WD|MAX|PT2M||1|deg|:328;
WD|MIN|PT2M||1|deg|:152;
WD|AVG|PT10M||1|deg|:237;
WD|MAX|PT10M||1|deg|:328;
WS|VALUE|||2|mps|:0.0;
WD|VALUE|||2|deg|:138;
WS|AVG|PT2M||2|mps|:0.0;
WS|MAX|PT2M||2|mps|:0.0;
WS|MIN|PT2M||2|mps|:0.0;
WS|AVG|PT10M||2|mps|:0.0;
WS|MAX|PT10M||2|mps|:0.1;
WGD|VALUE|PT10M||20|deg|:0.0;
WD|AVG|PT2M||2|deg|:136;
WD|MAX|PT2M||2|deg|:332;
WD|MIN|PT2M||2|deg|:354;
WD|AVG|PT10M||2|deg|:157;
WD|MAX|PT10M||2|deg|:315;
WD|MAX|PT10M||2|deg|:324;
TA|AVG|PT1M||1|degC|:22.2;
TA|AVG|PT24H||1|degC|:22.0;
TA|MAX|PT24H||1|degC|:24.1;
TA|MIN|PT24H||1|degC|:20.7;
TD|AVG|PT1M||1|degC|:13.8;
RH|AVG|PT1M||1|%|:59;
RH|AVG|PT24H||1|%|:57;
RH|MAX|PT24H||1|%|:59;
RH|MIN|PT24H||1|%|:55;
PA|AVG|PT1M||1|hPa|:1002.4;
QFE|AVG|PT1M||1|hPa|:1002.6;
QFF|AVG|PT1M||1|hPa|:1337.7;
QNH|AVG|PT1M||1|hPa|:1338.4;
PATR|VALUE|PT3H||1|hPa|:-0.8;
PATE|VALUE|PT3H||1|hPa|:8;
PR|SUM|PT1M||1|mm|:0.00;
PR|SUM|PT1H||1|mm|:0.00;
PRF|SUM|PT1M||1|mm/h|:0.00;
TA|AVG|PT1M||2|degC|:22.1;
TA|AVG|PT24H||2|degC|:21.6;
TA|MAX|PT24H||2|degC|:23.2;
TA|MIN|PT24H||2|degC|:20.3;
TD|AVG|PT1M||2|degC|:13.7;
RH|AVG|PT1M||2|%|:59;
RH|AVG|PT24H||2|%|:59;
RH|MAX|PT24H||2|%|:59;
RH|MIN|PT24H||2|%|:58;
PA|AVG|PT1M||2|hPa|:1002.3;
QFE|AVG|PT1M||2|hPa|:1002.5;
QFF|AVG|PT1M||2|hPa|:1337.8;
QNH|AVG|PT1M||2|hPa|:1338.3;
PATR|VALUE|PT3H||2|hPa|:-0.8;
PATE|VALUE|PT3H||2|hPa|:8;
TS|AVG|PT1M||1|degC|:22.5;
TS|AVG|PT24H||1|degC|:22.3;
TS|MAX|PT24H||1|degC|:22.5;
TS|MIN|PT24H||1|degC|:22.1;
SRN|AVG|PT1M||1|Wpm2|:-8;
SRN|AVG|PT24H||1|Wpm2|:-2;
SRN|MAX|PT24H||1|Wpm2|:3;
SRN|MIN|PT24H||1|Wpm2|:-8;
SNH|AVG|PT1M||1|cm|:11874.2;
SNH|AVG|PT24H||1|cm|:11874.9;
SNH|MAX|PT24H||1|cm|:11876.8;
SNH|MIN|PT24H||1|cm|:11873.7)D621
`

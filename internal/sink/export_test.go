package sink

var ReadHTMLRecordsWithLimit = readHTMLRecords

// Package tests holds the catalog of end-to-end tests run against a ReportStream deployment.
package tests

import "github.com/reportstream/rs-acceptor/harness"

// All is every test in the order a full run executes them.
var All = []harness.Test{
	Ping,
	End2End,
	Merge,
	Garbage,
	QualityFilter,
	HL7Null,
	TooManyCols,
	BadCSV,
	Strac,
	Huge,
	TooBig,
	DBConnections,
	BadSFTP,
	StracPack,
	HammerTime,
	Waters,
	RepeatWaters,
	IntContent,
	SantaClaus,
	OTCProctored,
}

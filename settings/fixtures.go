package settings

import (
	"fmt"
	"strings"
)

const (
	// FixtureOrg is the organization whose senders and receivers exist only for end-to-end testing.
	FixtureOrg = "ignore"

	SimpleReportSender = "ignore-simple-report"
	StracSender        = "ignore-strac"
	WatersSender       = "ignore-waters"
	EmptySender        = "ignore-empty"
	HL7Sender          = "ignore-hl7"
)

// excluded from the "all good" receiver set because they are expected to drop or reject data
var badReceiverMarkers = []string{"FAIL", "BLOBSTORE", "QUALITY", "AS2", "OTC"}

// Fixtures are the senders and receivers of the test organization, resolved once per run.
type Fixtures struct {
	SimpleReport Sender
	Strac        Sender
	Waters       Sender
	Empty        Sender
	HL7Sender    Sender

	// AllGood receivers are expected to receive, batch and send everything addressed to them.
	AllGood []Receiver

	CSV             Receiver
	HL7             Receiver
	HL7Batch        Receiver
	Redox           Receiver
	HL7Null         Receiver
	Blobstore       Receiver
	SFTPFail        Receiver
	QualityPass     Receiver
	QualityAll      Receiver
	QualityFail     Receiver
	QualityReversed Receiver
}

// ResolveFixtures finds every sender and receiver the test catalog relies on.
func ResolveFixtures(c *Catalog) (*Fixtures, error) {
	if _, ok := c.FindOrganization(FixtureOrg); !ok {
		return nil, fmt.Errorf("unable to find org %s in settings", FixtureOrg)
	}

	f := &Fixtures{}
	senders := []struct {
		name string
		dst  *Sender
	}{
		{SimpleReportSender, &f.SimpleReport},
		{StracSender, &f.Strac},
		{WatersSender, &f.Waters},
		{EmptySender, &f.Empty},
		{HL7Sender, &f.HL7Sender},
	}
	for _, s := range senders {
		sender, ok := c.FindSender(FixtureOrg + "." + s.name)
		if !ok {
			return nil, fmt.Errorf("unable to find sender %s for organization %s", s.name, FixtureOrg)
		}
		*s.dst = sender
	}

	for _, r := range c.Receivers() {
		if r.OrganizationName == FixtureOrg && isGood(r.Name) {
			f.AllGood = append(f.AllGood, r)
		}
	}

	receivers := []struct {
		name string
		dst  *Receiver
	}{
		{"CSV", &f.CSV},
		{"HL7", &f.HL7},
		{"HL7_BATCH", &f.HL7Batch},
		{"REDOX", &f.Redox},
		{"HL7_NULL", &f.HL7Null},
		{"BLOBSTORE", &f.Blobstore},
		{"SFTP_FAIL", &f.SFTPFail},
		{"QUALITY_PASS", &f.QualityPass},
		{"QUALITY_ALL", &f.QualityAll},
		{"QUALITY_FAIL", &f.QualityFail},
		{"QUALITY_REVERSED", &f.QualityReversed},
	}
	for _, r := range receivers {
		receiver, ok := c.FindReceiver(FixtureOrg, r.name)
		if !ok {
			return nil, fmt.Errorf("unable to find receiver %s for organization %s", r.name, FixtureOrg)
		}
		*r.dst = receiver
	}
	return f, nil
}

// Names joins receiver names with commas, the way fake files address counties.
func Names(receivers []Receiver) string {
	names := make([]string, 0, len(receivers))
	for _, r := range receivers {
		names = append(names, r.Name)
	}
	return strings.Join(names, ",")
}

func isGood(name string) bool {
	for _, m := range badReceiverMarkers {
		if strings.Contains(name, m) {
			return false
		}
	}
	return true
}

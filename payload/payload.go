// Package payload writes the fake report files the end-to-end tests submit.
package payload

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reportstream/rs-acceptor/settings"
)

const (
	// ReportMaxItems is the largest report the router accepts.
	ReportMaxItems = 10000
	// ReportMaxColumns is the widest report the router accepts.
	ReportMaxColumns = 2000

	// TestState is the state code the router routes to the test organization.
	TestState = "IG"

	LocaleDefault = ""
	LocaleChinese = "zh_CN"
)

var header = []string{
	"Patient_Id", "Patient_First_Name", "Patient_Last_Name", "Patient_State", "Patient_County",
	"Ordered_Test_Code", "Test_Result", "Device_Id", "Specimen_Collection_Date",
}

var (
	firstNames        = []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Ken"}
	lastNames         = []string{"Lovelace", "Hopper", "Turing", "Dijkstra", "Liskov", "Thompson"}
	chineseFirstNames = []string{"伟", "芳", "娜", "秀英", "敏", "静"}
	chineseLastNames  = []string{"王", "李", "张", "刘", "陈", "杨"}
	results           = []string{"260373001", "260415000", "419984006"}
)

// States are the states and territories santaclaus addresses one item each to.
var States = []string{
	"AK", "AL", "AR", "AS", "AZ", "CA", "CO", "CT", "DC", "DE", "FL", "GA", "GU", "HI", "IA", "ID", "IL",
	"IN", "KS", "KY", "LA", "MA", "MD", "ME", "MI", "MN", "MO", "MP", "MS", "MT", "NC", "ND", "NE", "NH",
	"NJ", "NM", "NV", "NY", "OH", "OK", "OR", "PA", "PR", "RI", "SC", "SD", "TN", "TX", "UT", "VA", "VI",
	"VT", "WA", "WI", "WV", "WY",
}

// Spec describes a fake file.
type Spec struct {
	Sender settings.Sender
	Count  int
	// States are cycled through item by item. Empty means States.
	States []string
	// Counties are cycled through item by item. The router routes test-state items to the receiver
	// named by the county, so N receivers and N*k items give every receiver k items.
	Counties []string
	Format   settings.Format
	Locale   string
	Dir      string
}

// FakeFile writes a file of fake items and returns its path.
func FakeFile(s Spec) (string, error) {
	if s.Count < 0 {
		return "", fmt.Errorf("invalid item count %d", s.Count)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", s.Dir, err)
	}
	format := s.Format
	if format == "" {
		format = s.Sender.Format
	}
	rows := fakeRows(s)

	if format == settings.FormatHL7 || format == settings.FormatHL7Batch {
		path := filepath.Join(s.Dir, fileName(s.Sender, "hl7"))
		return path, os.WriteFile(path, []byte(hl7Batch(s.Sender, rows)), 0644)
	}
	path := filepath.Join(s.Dir, fileName(s.Sender, "csv"))
	return path, writeCSV(path, append([][]string{header}, rows...))
}

func fakeRows(s Spec) [][]string {
	states := s.States
	if len(states) == 0 {
		states = States
	}
	first, last := firstNames, lastNames
	if s.Locale == LocaleChinese {
		first, last = chineseFirstNames, chineseLastNames
	}
	collected := time.Now().UTC().Format("20060102")

	rows := make([][]string, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		county := ""
		if len(s.Counties) > 0 {
			county = s.Counties[i%len(s.Counties)]
		}
		rows = append(rows, []string{
			uuid.NewString(),
			first[rand.IntN(len(first))],
			last[rand.IntN(len(last))],
			states[i%len(states)],
			county,
			"94558-4",
			results[rand.IntN(len(results))],
			"BinaxNOW COVID-19 Ag Card",
			collected,
		})
	}
	return rows
}

func hl7Batch(sender settings.Sender, rows [][]string) string {
	var b strings.Builder
	ts := time.Now().UTC().Format("20060102150405")
	fmt.Fprintf(&b, "FHS|^~\\&|%s|||||%s\r", sender.FullName(), ts)
	fmt.Fprintf(&b, "BHS|^~\\&|%s|||||%s\r", sender.FullName(), ts)
	for i, r := range rows {
		fmt.Fprintf(&b, "MSH|^~\\&|%s||||%s||ORU^R01^ORU_R01|%d|P|2.5.1\r", sender.FullName(), ts, i+1)
		fmt.Fprintf(&b, "PID|1||%s||%s^%s||||||^^^%s^^^^^%s\r", r[0], r[2], r[1], r[3], r[4])
		fmt.Fprintf(&b, "OBX|1|CWE|%s||%s\r", r[5], r[6])
	}
	fmt.Fprintf(&b, "BTS|%d\r", len(rows))
	fmt.Fprintf(&b, "FTS|1\r")
	return b.String()
}

// TooManyColumns writes a one-row csv file that is wider than the router accepts.
func TooManyColumns(dir string) (string, error) {
	cols := ReportMaxColumns + 1
	head := make([]string, cols)
	row := make([]string, cols)
	for i := range head {
		head[i] = fmt.Sprintf("column_%d", i)
		row[i] = "x"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "too-many-columns.csv")
	return path, writeCSV(path, [][]string{head, row})
}

// NotACSV writes a file that cannot be parsed as csv.
func NotACSV(dir string) (string, error) {
	return writeRaw(dir, "not-a-csv-file.csv", "\x00\x01\x02 this is not a csv file \"unterminated\n")
}

// Empty writes a zero byte file.
func Empty(dir string) (string, error) {
	return writeRaw(dir, "completely-empty-file.csv", "")
}

// OTC writes a single-item file whose device id decides which over-the-counter receiver the router picks.
func OTC(dir string, sender settings.Sender, deviceID string) (string, error) {
	template := strings.Join(header, ",") + "\n" +
		strings.Join([]string{uuid.NewString(), "Ada", "Lovelace", TestState, "", "94558-4", "260415000", "replaceMe", time.Now().UTC().Format("20060102")}, ",") + "\n"
	content := strings.ReplaceAll(template, "replaceMe", csvEscape(deviceID))
	return writeRaw(dir, fileName(sender, "csv"), content)
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func writeRaw(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, []byte(content), 0644)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fileName(sender settings.Sender, ext string) string {
	return fmt.Sprintf("%s-%s.%s", sender.Name, uuid.NewString(), ext)
}

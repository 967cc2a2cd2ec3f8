package tests

import (
	"context"
	"os"
	"path/filepath"
	"unicode"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/payload"
	"github.com/reportstream/rs-acceptor/types"
)

// IntContent sends items full of Chinese characters and reads the file the router uploaded to
// the local sftp server, which must not have been reduced to ASCII. Only runs locally, where the
// sftp folder is reachable.
var IntContent = harness.Test{
	ID:          "intcontent",
	Description: "Create Fake data that includes international characters, submit, wait, confirm sent via database lineage data",
	Status:      types.ClassificationExperimental,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		if !h.Env.IsLocal() {
			return h.Fail("***intcontent Test FAILED***: This test can only be run locally as it needs access to the SFTP folder.")
		}
		if info, err := os.Stat(opts.SFTPDir); err != nil || !info.IsDir() {
			return h.Fail("***intcontent Test FAILED***: The folder %s cannot be found.", opts.SFTPDir)
		}

		f := h.Fixtures
		h.Reporter.Ugly("Starting intcontent Test: send %s data to %s", f.SimpleReport.FullName(), f.HL7.Name)
		file, err := payload.FakeFile(payload.Spec{
			Sender:   f.SimpleReport,
			Count:    1,
			States:   []string{payload.TestState},
			Counties: []string{f.HL7.Name},
			Locale:   payload.LocaleChinese,
			Dir:      opts.Dir,
		})
		if err != nil {
			return h.Fail("unable to create fake file: %v", err)
		}
		h.Reporter.Echo("Created datafile %s", file)

		code, body, err := h.Submit(ctx, file, f.SimpleReport, opts)
		if err != nil {
			return h.Fail("***intcontent Test FAILED***: %v", err)
		}
		id, err := h.RequireCreated("intcontent", code, body)
		if err != nil {
			return err
		}
		if err := h.Wait(ctx, 25, opts.Verbosity); err != nil {
			return err
		}

		filename, err := h.Verifier.UploadedFilename(ctx, id, f.HL7.Name)
		if err != nil {
			return h.Fail("***intcontent Test FAILED***: %v", err)
		}
		if filename == nil {
			return h.Fail("***intcontent Test FAILED***: No file was sent to %s", f.HL7.Name)
		}
		contents, err := os.ReadFile(filepath.Join(opts.SFTPDir, *filename))
		if err != nil {
			return h.Fail("***intcontent Test FAILED***: %v", err)
		}
		if asciiOnly(string(contents)) {
			return h.Fail("***intcontent Test FAILED***: File contents are only ASCII characters")
		}
		h.Reporter.Good("Test passed: for intcontent")
		return nil
	},
}

func asciiOnly(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

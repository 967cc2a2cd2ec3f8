package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load("organizations.yml")
	require.NoError(t, err)

	s, ok := c.FindSender("ignore.ignore-strac")
	require.True(t, ok)
	assert.Equal(t, "ignore", s.OrganizationName)
	assert.Equal(t, "ignore.ignore-strac", s.FullName())
	assert.Equal(t, "text/csv", s.Format.ContentType())

	_, ok = c.FindSender("ignore-strac")
	assert.False(t, ok)
	_, ok = c.FindSender("ignore.nope")
	assert.False(t, ok)

	r, ok := c.FindReceiver("ignore", "HL7_NULL")
	require.True(t, ok)
	assert.NotNil(t, r.Timing)
	assert.NotNil(t, r.Transport)
	assert.Equal(t, FormatHL7, r.Format())

	q, ok := c.FindReceiver("ignore", "QUALITY_ALL")
	require.True(t, ok)
	assert.Nil(t, q.Timing)
	assert.Nil(t, q.Transport)

	assert.Len(t, c.SendersOf("simple_report", "waters", "strac", "safehealth"), 4)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{name: "empty", data: "[]", msg: "no organizations"},
		{name: "not yaml list", data: "name: ignore", msg: "failed to parse"},
		{name: "duplicate", data: "- name: a\n- name: a\n", msg: "duplicate organization"},
		{name: "unnamed", data: "- description: x\n", msg: "has no name"},
		{
			name: "bad format",
			data: "- name: a\n  senders:\n    - name: s\n      format: XML\n",
			msg:  "invalid format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, os.IsNotExist(err))
}

func TestResolveFixtures(t *testing.T) {
	c, err := Load("organizations.yml")
	require.NoError(t, err)

	f, err := ResolveFixtures(c)
	require.NoError(t, err)
	assert.Equal(t, "CSV,HL7,HL7_BATCH,REDOX,HL7_NULL", Names(f.AllGood))
	assert.Equal(t, "REDOX", f.Redox.Name)
	assert.Equal(t, "ignore-waters", f.Waters.Name)
	assert.Equal(t, "SFTP_FAIL", f.SFTPFail.Name)
	assert.Equal(t, "application/hl7-v2", f.HL7Sender.Format.ContentType())
}

func TestResolveFixturesMissing(t *testing.T) {
	c, err := Parse([]byte("- name: ignore\n  senders:\n    - name: ignore-simple-report\n"))
	require.NoError(t, err)
	_, err = ResolveFixtures(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ignore-strac")

	c, err = Parse([]byte("- name: other\n"))
	require.NoError(t, err)
	_, err = ResolveFixtures(c)
	assert.Contains(t, err.Error(), "unable to find org")
}

func TestLoadDefault(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)
	_, err = ResolveFixtures(c)
	assert.NoError(t, err)
}

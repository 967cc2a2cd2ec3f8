package types

import (
	"fmt"
	"strings"
)

// Environment describes a deployment of the router that tests can be aimed at.
type Environment struct {
	Name     string
	Endpoint string
	// DBMarkers are substrings at least one of which must appear in the database url
	// for the configuration to be considered pointed at this environment.
	DBMarkers []string
	// KeyRequired means submissions must carry an x-functions-key credential.
	KeyRequired bool
	// Allowed is false for environments the tool refuses to touch.
	Allowed bool
}

var (
	EnvLocal = Environment{
		Name:      "local",
		Endpoint:  "http://localhost:7071",
		DBMarkers: []string{"postgresql", "localhost"},
		Allowed:   true,
	}
	EnvTest = Environment{
		Name:        "test",
		Endpoint:    "https://pdhtest-functionapp.azurewebsites.net",
		DBMarkers:   []string{"pdhtest"},
		KeyRequired: true,
		Allowed:     true,
	}
	EnvStaging = Environment{
		Name:        "staging",
		Endpoint:    "https://pdhstaging-functionapp.azurewebsites.net",
		DBMarkers:   []string{"pdhstaging"},
		KeyRequired: true,
		Allowed:     true,
	}
	EnvProd = Environment{
		Name:      "prod",
		Endpoint:  "https://prime.cdc.gov",
		DBMarkers: []string{"pdhprod"},
	}

	Environments = []Environment{EnvLocal, EnvTest, EnvStaging, EnvProd}
)

// IsLocal reports whether the environment runs on the developer machine.
func (e Environment) IsLocal() bool {
	return e.Name == EnvLocal.Name
}

// MatchesDatabase reports whether the database url looks like it belongs to this environment.
func (e Environment) MatchesDatabase(dbURL string) bool {
	for _, m := range e.DBMarkers {
		if strings.Contains(dbURL, m) {
			return true
		}
	}
	return false
}

// LookupEnvironment returns the environment with the given name.
func LookupEnvironment(name string) (Environment, error) {
	for _, e := range Environments {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return Environment{}, fmt.Errorf("unknown environment %q", name)
}

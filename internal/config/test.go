package config

// TestConfig carries the DSN for store integration tests. Loading
// fails when TEST_POSTGRES_DSN is unset, which the test helper turns
// into a skip.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	return parseEnv[TestConfig]()
}

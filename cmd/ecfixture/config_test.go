package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONConfigSuccess(t *testing.T) {
	path := writeTempConfig(t, `{"datashard":6,"parityshard":2,"blocksize":1024,"fail":[1,6],"ir":true,"metricslog":"./ec-20060102.log","metricsperiod":30}`)

	var cfg Config
	if err := parseJSONConfig(&cfg, path); err != nil {
		t.Fatalf("parseJSONConfig returned error: %v", err)
	}

	if cfg.DataShard != 6 || cfg.ParityShard != 2 {
		t.Fatalf("unexpected shard counts: %+v", cfg)
	}

	if cfg.BlockSize != 1024 || !cfg.IR {
		t.Fatalf("unexpected numeric or boolean fields: %+v", cfg)
	}

	if len(cfg.Fail) != 2 || cfg.Fail[0] != 1 || cfg.Fail[1] != 6 {
		t.Fatalf("unexpected failure list: %+v", cfg.Fail)
	}

	if cfg.MetricsLog != "./ec-20060102.log" || cfg.MetricsPeriod != 30 {
		t.Fatalf("unexpected metrics fields: %+v", cfg)
	}
}

func TestParseJSONConfigMissingFile(t *testing.T) {
	var cfg Config
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := parseJSONConfig(&cfg, missing); err == nil {
		t.Fatalf("parseJSONConfig expected error for missing file")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

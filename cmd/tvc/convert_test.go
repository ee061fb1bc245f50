package main

import "testing"

func TestOverrideBool(t *testing.T) {
	cmd := convertCmd()

	strict := true
	overrideBool(cmd, "strict", &strict)
	if !strict {
		t.Error("unset flag overrode config value")
	}

	if err := cmd.Flags().Set("strict", "false"); err != nil {
		t.Fatal(err)
	}
	overrideBool(cmd, "strict", &strict)
	if strict {
		t.Error("--strict=false did not turn off config value")
	}

	requireCreateDate := false
	if err := cmd.Flags().Set("require-create-date", "true"); err != nil {
		t.Fatal(err)
	}
	overrideBool(cmd, "require-create-date", &requireCreateDate)
	if !requireCreateDate {
		t.Error("--require-create-date did not turn on")
	}
}

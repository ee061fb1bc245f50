package main

import "testing"

func TestColorizeSnippet(t *testing.T) {
	got := colorizeSnippet("the >>>forest<<< sleeps")
	want := "the " + sColorBoldRed + "forest" + sColorReset + " sleeps"
	if got != want {
		t.Errorf("colorizeSnippet = %q, want %q", got, want)
	}
}

func TestFlatten(t *testing.T) {
	if got := flatten("a\tb\nc"); got != "a b c" {
		t.Errorf("flatten = %q", got)
	}
}

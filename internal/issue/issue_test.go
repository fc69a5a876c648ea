// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_OrderedAndComplete(t *testing.T) {
	t.Parallel()

	vals := Values()
	if len(vals) != int(PermissionDeniedId) {
		t.Fatalf("len(Values()) = %d, want %d", len(vals), PermissionDeniedId)
	}
	for i, is := range vals {
		if want := Id(i + 1); is.Id() != want {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), want)
		}
		if strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", is.Id())
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	if Get(0) != nil || Get(PermissionDeniedId+1) != nil {
		t.Error("Get() of an unknown id should be nil")
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	is := Get(CMakeNotFoundId)
	links := is.ExtLinks()
	if len(links) != 1 {
		t.Fatalf("ExtLinks() = %v", links)
	}
	links[0] = "mutated"
	if is.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks() should return a copy")
	}
	if len(is.DocLinks()) != 0 {
		t.Errorf("DocLinks() = %v", is.DocLinks())
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	for _, is := range Values() {
		out, err := is.Render("notty")
		if err != nil {
			t.Fatalf("Render(%d) error = %v", is.Id(), err)
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("Render(%d) is empty", is.Id())
		}
	}

	out, err := Get(CMakeNotFoundId).Render("notty")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"CMake not found", "See also", "cmake.org/download"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered guide missing %q:\n%s", want, out)
		}
	}
}

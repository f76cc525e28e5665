package agent

import "testing"

func TestRender_SimpleSubstitution(t *testing.T) {
	out, err := Render("Hello {{name}}", Vars{"name": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", out)
	}
}

func TestRender_MissingVariable(t *testing.T) {
	if _, err := Render("Hello {{name}}", Vars{}); err == nil {
		t.Fatal("expected error for missing variable")
	}
}

func TestRender_ConditionalIncludedWhenSet(t *testing.T) {
	tmpl := "before{{#if note}} {{note}}{{/if}} after"
	out, err := Render(tmpl, Vars{"note": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "before hi after" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRender_ConditionalOmittedWhenEmpty(t *testing.T) {
	tmpl := "before{{#if note}} {{note}}{{/if}} after"
	out, err := Render(tmpl, Vars{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "before after" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRender_NestedConditionals(t *testing.T) {
	tmpl := "{{#if outer}}outer-start{{#if inner}} inner {{/if}}outer-end{{/if}}"
	out, err := Render(tmpl, Vars{"outer": "yes", "inner": "yes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "outer-start inner outer-end" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRender_DanglingClose(t *testing.T) {
	if _, err := Render("{{/if}}", Vars{}); err == nil {
		t.Fatal("expected error for dangling close")
	}
}

func TestRender_UnclosedOpen(t *testing.T) {
	if _, err := Render("{{#if x}}body", Vars{"x": "1"}); err == nil {
		t.Fatal("expected error for unclosed conditional")
	}
}

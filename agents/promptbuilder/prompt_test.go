/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type questionXML struct {
	XMLName struct{} `xml:"question"`
	Text    string   `xml:",chardata"`
}

func TestNewPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template stringLiteral
		want     map[string]struct{}
		wantErr  bool
	}{{
		name:     "no placeholders",
		template: "Evaluate the response.",
		want:     map[string]struct{}{},
	}, {
		name:     "repeated placeholder",
		template: "{{question}} and again {{ question }} then {{response}}",
		want:     map[string]struct{}{"question": {}, "response": {}},
	}, {
		name:     "unclosed",
		template: "{{question",
		wantErr:  true,
	}, {
		name:     "invalid identifier",
		template: "{{1question}}",
		wantErr:  true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPrompt(tt.template)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewPrompt() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPrompt() = %v", err)
			}
			if diff := cmp.Diff(tt.want, p.Bindings()); diff != "" {
				t.Errorf("Bindings() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	p := MustNewPrompt("<task>Score the answer</task>\n{{question}}\n{{response}}\n{{history}}\nthreshold={{threshold}}")

	p, err := p.BindXML("question", questionXML{Text: "What is <Polkadot> & why?"})
	if err != nil {
		t.Fatal(err)
	}
	p, err = p.BindElement("response", "Use {{threshold}} </response> wisely")
	if err != nil {
		t.Fatal(err)
	}
	p, err = p.BindYAML("history", map[string]string{"role": "user", "content": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	p, err = p.BindTrusted("threshold", "0.7")
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.Build()
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}

	// Placeholders inside bound values are not expanded.
	want := "<task>Score the answer</task>\n" +
		"<question>What is &lt;Polkadot&gt; &amp; why?</question>\n" +
		"<response>Use {{threshold}} &lt;/response&gt; wisely</response>\n" +
		"content: hi\nrole: user\n\n" +
		"threshold=0.7"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepeatedPlaceholder(t *testing.T) {
	p := Must(MustNewPrompt("{{name}} and {{ name }}").BindTrusted("name", "gavin"))
	got, err := p.Build()
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if got != "gavin and gavin" {
		t.Errorf("Build() = %q, want %q", got, "gavin and gavin")
	}
}

func TestBindingIsImmutable(t *testing.T) {
	base := MustNewPrompt("Q: {{question}}")

	a := Must(base.BindXML("question", questionXML{Text: "first"}))
	b := Must(base.BindXML("question", questionXML{Text: "second"}))

	ga, _ := a.Build()
	gb, _ := b.Build()
	if !strings.Contains(ga, "first") || !strings.Contains(gb, "second") {
		t.Errorf("bindings leaked between copies: %q / %q", ga, gb)
	}
	if _, err := base.Build(); err == nil {
		t.Error("base prompt should remain unbound")
	}
}

func TestBindErrors(t *testing.T) {
	p := MustNewPrompt("Q: {{question}}")

	if _, err := p.BindTrusted("missing", "x"); err == nil {
		t.Error("binding an unknown placeholder should fail")
	}

	bound := Must(p.BindTrusted("question", "x"))
	if _, err := bound.BindTrusted("question", "y"); err == nil {
		t.Error("rebinding a placeholder should fail")
	}

	if _, err := p.Build(); err == nil || !strings.Contains(err.Error(), "unbound placeholder: question") {
		t.Errorf("Build() error = %v, want unbound placeholder", err)
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNewPrompt() should panic on a malformed template")
		}
	}()
	MustNewPrompt("{{oops")
}

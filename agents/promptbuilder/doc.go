/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds model prompts from templates with {{name}} placeholders.

Templates are string literals. Values from users, transcripts or the bot under
test are bound as XML elements or YAML so that they are escaped and cannot
introduce new instructions:

	var rubricPrompt = promptbuilder.MustNewPrompt(`Evaluate the response.
	{{question}}
	{{response}}`)

	p, err := rubricPrompt.BindElement("question", q)
	...
	text, err := p.Build()

Binding returns a new Prompt, so package-level templates are safe to share.
Build fails when any placeholder is left unbound.
*/
package promptbuilder

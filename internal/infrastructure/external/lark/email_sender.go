package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/scanops/oms/internal/application/port"
)

// EmailSender delivers client e-mails as Lark post messages addressed by e-mail
type EmailSender struct {
	client *Client
}

// NewEmailSender creates a new Lark e-mail sender
func NewEmailSender(client *Client) *EmailSender {
	return &EmailSender{client: client}
}

var _ port.EmailSender = (*EmailSender)(nil)

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// Send renders the HTML body as paragraphs of a post message
func (s *EmailSender) Send(ctx context.Context, msg port.EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	var paragraphs [][]postElement
	for _, line := range strings.Split(PlainText(msg.HTML), "\n") {
		paragraphs = append(paragraphs, []postElement{{Tag: "text", Text: line}})
	}

	content, err := json.Marshal(map[string]postBody{
		"en_us": {Title: msg.Subject, Content: paragraphs},
	})
	if err != nil {
		return fmt.Errorf("failed to encode post message: %w", err)
	}
	_, err = s.client.send(ctx, ReceiveByEmail, msg.To, "post", string(content))
	return err
}

// PlainText strips markup from an HTML body, keeping one line per block.
// Style and script bodies are dropped.
func PlainText(body string) string {
	var b strings.Builder
	skip := ""
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.TextToken:
			if skip == "" {
				b.WriteString(tok.Data)
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.DataAtom {
			case atom.Style, atom.Script:
				if tt == html.StartTagToken {
					skip = tok.Data
				}
			case atom.Br:
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			if tok.Data == skip {
				skip = ""
			}
			if blockEnd[tok.DataAtom] {
				b.WriteByte('\n')
			}
		}
	}
	return collapseLines(b.String())
}

var blockEnd = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

// collapseLines trims every line and keeps at most one blank line in a row
func collapseLines(text string) string {
	var out []string
	blank := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

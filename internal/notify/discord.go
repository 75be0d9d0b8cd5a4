/*
Package notify
File: discord.go
Description:
    Posts a Discord embed whenever a calculation is shared. Delivery is
    best-effort: failures are logged and dropped, never retried, and never
    surface to the user who created the share.
*/

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/everforgeworks/growcalc/internal/share"
)

// Embed colors by headline value.
const (
	colorGold  = 0xFFD700 // >= 1,000,000
	colorGreen = 0x00FF00 // >= 100,000
	colorCyan  = 0x00FFFF // >= 10,000
	colorGray  = 0x808080
)

// Discord sends share notifications to a webhook URL.
type Discord struct {
	url      string
	username string
	client   *http.Client
}

// NewDiscord returns a notifier, or nil when url is empty so callers can
// skip registration.
func NewDiscord(url, username string, timeout time.Duration) *Discord {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Discord{url: url, username: username, client: &http.Client{Timeout: timeout}}
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// ShareCreated implements share.Notifier.
func (d *Discord) ShareCreated(ctx context.Context, r share.Record, link string) {
	if err := d.send(ctx, buildEmbed(r, link)); err != nil {
		slog.Warn("discord webhook", "share_id", r.ID, "err", err)
		return
	}
	slog.Debug("discord webhook sent", "share_id", r.ID)
}

func (d *Discord) send(ctx context.Context, e embed) error {
	body, err := json.Marshal(webhookPayload{Username: d.username, Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("encoding webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func buildEmbed(r share.Record, link string) embed {
	e := embed{
		Description: "Someone just shared their calculation results!",
		URL:         link,
		Color:       colorFor(r.TotalValue()),
		Footer:      embedFooter{Text: "Grow Calculator"},
		Timestamp:   r.CreatedAt.UTC().Format(time.RFC3339),
	}

	switch {
	case r.Single != nil:
		s := r.Single
		e.Title = fmt.Sprintf("%s Calculation Shared!", s.Plant)

		mutations := "None"
		if len(s.Mutations) > 0 {
			mutations = strings.Join(s.Mutations, ", ")
		}
		value := fmt.Sprintf("**Per Plant:** %s\n**Total Value:** %s\n**Multiplier:** %gx",
			FormatValue(s.FinalValue), FormatValue(s.TotalValue), s.MutationMultiplier)
		if s.Capped {
			value += "\nValue exceeds in-game cap"
		}

		e.Fields = []embedField{
			{Name: "Plant Details", Inline: true, Value: fmt.Sprintf("**Plant:** %s\n**Variant:** %s\n**Weight:** %g kg\n**Amount:** %d",
				s.Plant, s.Variant, s.Weight, s.Quantity)},
			{Name: "Mutations", Value: mutations, Inline: true},
			{Name: "Value Breakdown", Value: value, Inline: true},
		}
		if r.WeightRange != nil {
			e.Fields = append(e.Fields, embedField{
				Name:   "Weight Range",
				Value:  fmt.Sprintf("**Min:** %g kg\n**Max:** %g kg", r.WeightRange.Min, r.WeightRange.Max),
				Inline: true,
			})
		}

	case r.Batch != nil:
		b := r.Batch
		e.Title = "Batch Calculation Shared!"
		e.Fields = []embedField{
			{Name: "Plants", Value: fmt.Sprintf("%d valued, %d failed", b.Succeeded, b.Failed), Inline: true},
			{Name: "Units", Value: fmt.Sprintf("%d", b.TotalUnits), Inline: true},
			{Name: "Total Value", Value: FormatValue(b.TotalValue), Inline: true},
		}
	}
	return e
}

func colorFor(total int64) int {
	switch {
	case total >= 1_000_000:
		return colorGold
	case total >= 100_000:
		return colorGreen
	case total >= 10_000:
		return colorCyan
	}
	return colorGray
}

// FormatValue renders an integer with thousands separators, e.g. 1,234,567.
func FormatValue(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

//go:build lambda

/*
Package main
File: main.go
Description: Serverless entrypoint. Serves the calculator API behind an AWS
Lambda Function URL by replaying each event through the same http.Handler
the long-running server uses. The websocket feed and the share janitor are
not available here; share links need a redis or postgres backend to survive
between invocations.
*/

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/everforgeworks/growcalc/internal/api"
	"github.com/everforgeworks/growcalc/internal/config"
	"github.com/everforgeworks/growcalc/internal/notify"
	"github.com/everforgeworks/growcalc/internal/share"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type app struct {
	handler http.Handler
}

func (a *app) handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(http.StatusBadRequest, "invalid base64 body")
		}
		body = string(decoded)
	}

	target := event.RawPath
	if event.RawQueryString != "" {
		target += "?" + event.RawQueryString
	}
	req := httptest.NewRequest(event.RequestContext.HTTP.Method, target, strings.NewReader(body)).WithContext(ctx)
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	headers := make(map[string]string, len(rec.Header()))
	for k := range rec.Header() {
		headers[k] = rec.Header().Get(k)
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: rec.Code,
		Headers:    headers,
		Body:       rec.Body.String(),
	}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadServer(os.Getenv("GROWCALC_CONFIG"))
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	cat, err := cfg.Catalog.Open()
	if err != nil {
		slog.Error("catalog", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := share.OpenStore(ctx, cfg.Share)
	if err != nil {
		slog.Error("share store", "err", err)
		os.Exit(1)
	}

	var opts []share.ServiceOption
	opts = append(opts, share.WithBaseURL(cfg.Share.PublicBaseURL))
	if d := notify.NewDiscord(cfg.Discord.WebhookURL, cfg.Discord.Username, cfg.Discord.Timeout); d != nil {
		opts = append(opts, share.WithNotifier(d))
	}
	shares := share.NewService(store, cfg.Share.TTL, opts...)

	server := api.NewServer(cat, shares, nil, api.Options{
		MaxQuantity:      cfg.MaxQuantity,
		MaxBatchItems:    cfg.MaxBatchItems,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	a := &app{handler: server.Handler()}
	lambda.Start(a.handle)
}

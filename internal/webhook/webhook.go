// Package webhook notifies an external endpoint after a pipeline run.
package webhook

import (
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/discounts"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const report_notifier_notify = "notifier.notify"

type Payload struct {
	Discounts []discounts.Discount `json:"discounts"`
	// Error is set when the run failed, Discounts is empty in that case.
	Error string `json:"error,omitempty"`
}

type Notifier struct {
	http *resty.Client
	url  string
	tel  telemetry.API
}

func NewNotifier(url string, tel telemetry.API) Notifier {
	tel = telemetry.NewScopedAPI("webhook", tel)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, tel)

	return Notifier{http: client, url: url, tel: tel}
}

// Notify POSTs the payload and returns the response status line.
func (n Notifier) Notify(ctx context.Context, payload Payload) (string, error) {
	if payload.Discounts == nil {
		payload.Discounts = []discounts.Discount{}
	}

	res, err := n.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(n.url)
	if err != nil {
		n.tel.ReportWarning(report_notifier_notify, err)
		return "", err
	}
	if res.IsError() {
		err = fmt.Errorf("webhook responded %s", res.Status())
		n.tel.ReportWarning(report_notifier_notify, err)
		return res.Status(), err
	}
	return res.Status(), nil
}

package link

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/smartscale/internal/nutrition"
)

// Requests sent by the scale.
const (
	MsgPing       = "PING"
	MsgCheckWiFi  = "CHECK-WIFI"
	MsgSave       = "SAVE"
	MsgGetBarcode = "GET-BARCODE"
	MsgGetProduct = "GET-PRODUCT:"
)

// Replies sent by the gateway.
const (
	MsgPong           = "PONG"
	MsgWiFiOK         = "WIFI-OK"
	MsgNoWiFi         = "NO-WIFI"
	MsgWaitingForData = "WAITING-FOR-DATA"
	MsgSavedOK        = "SAVED-OK"
	MsgHTTPError      = "HTTP-ERROR:"
	MsgTimeout        = "TIMEOUT"
	MsgBarcode        = "BARCODE:"
	MsgNoBarcode      = "NO-BARCODE"
	MsgProduct        = "PRODUCT:"
	MsgNoProduct      = "NO-PRODUCT"
	MsgProductTimeout = "PRODUCT-TIMEOUT"
)

// Ping reports whether the gateway answers.
func (c *Conn) Ping(ctx context.Context) bool {
	reply, err := c.Request(ctx, MsgPing, c.timeouts.Ping)
	return err == nil && reply == MsgPong
}

// CheckWiFi reports whether the gateway has network access. Any failure
// to get an answer counts as no network; the error says why.
func (c *Conn) CheckWiFi(ctx context.Context) (bool, error) {
	reply, err := c.Request(ctx, MsgCheckWiFi, c.timeouts.WiFi)
	if err != nil {
		return false, err
	}
	switch reply {
	case MsgWiFiOK:
		return true, nil
	case MsgNoWiFi:
		return false, nil
	}
	return false, unexpected(MsgCheckWiFi, reply)
}

// StartSave asks the gateway to receive a meal upload.
func (c *Conn) StartSave(ctx context.Context) error {
	reply, err := c.Request(ctx, MsgSave, c.timeouts.Save)
	if err != nil {
		return err
	}
	if reply != MsgWaitingForData {
		return unexpected(MsgSave, reply)
	}
	return nil
}

// SaveResult is the gateway's verdict on one uploaded meal.
type SaveResult struct {
	OK bool
	// Status is the server's HTTP status when the upload was rejected.
	Status int
	// NoWiFi is set when the gateway lost the network.
	NoWiFi bool
	// TimedOut is set when the server did not answer the gateway.
	TimedOut bool
}

// Frame formats r as the gateway sends it.
func (r SaveResult) Frame() string {
	switch {
	case r.OK:
		return MsgSavedOK
	case r.NoWiFi:
		return MsgNoWiFi
	case r.TimedOut:
		return MsgTimeout
	}
	return MsgHTTPError + strconv.Itoa(r.Status)
}

// ParseSaveResult parses the gateway's reply to a meal upload. The
// "ERROR-HTTP:" spelling is accepted as a synonym.
func ParseSaveResult(frame string) (SaveResult, error) {
	switch frame {
	case MsgSavedOK:
		return SaveResult{OK: true}, nil
	case MsgNoWiFi:
		return SaveResult{NoWiFi: true}, nil
	case MsgTimeout:
		return SaveResult{TimedOut: true}, nil
	}
	for _, prefix := range []string{MsgHTTPError, "ERROR-HTTP:"} {
		if code, ok := strings.CutPrefix(frame, prefix); ok {
			status, err := strconv.Atoi(strings.TrimSpace(code))
			if err != nil {
				return SaveResult{}, malformed(frame, "bad http status")
			}
			return SaveResult{Status: status}, nil
		}
	}
	return SaveResult{}, malformed(frame, "unknown save result")
}

// AwaitSaveResult reads the gateway's verdict after the meal's last line.
func (c *Conn) AwaitSaveResult(ctx context.Context) (SaveResult, error) {
	frame, err := c.awaitReply(ctx, MsgSave, c.timeouts.Upload)
	if err != nil {
		return SaveResult{}, err
	}
	return ParseSaveResult(frame)
}

// GetBarcode asks the gateway to scan a barcode.
func (c *Conn) GetBarcode(ctx context.Context) (string, error) {
	reply, err := c.Request(ctx, MsgGetBarcode, c.timeouts.Barcode)
	if err != nil {
		return "", err
	}
	switch {
	case reply == MsgNoBarcode:
		return "", ErrNoBarcode
	case reply == MsgTimeout:
		return "", ErrTimeout
	}
	code, ok := strings.CutPrefix(reply, MsgBarcode)
	if !ok {
		return "", unexpected(MsgGetBarcode, reply)
	}
	if code == "" {
		return "", malformed(reply, "empty barcode")
	}
	return code, nil
}

// GetProduct asks the gateway to look a barcode up.
func (c *Conn) GetProduct(ctx context.Context, barcode string) (nutrition.Product, error) {
	req := MsgGetProduct + barcode
	reply, err := c.Request(ctx, req, c.timeouts.Product)
	if err != nil {
		return nutrition.Product{}, err
	}
	switch {
	case reply == MsgNoProduct:
		return nutrition.Product{}, ErrNoProduct
	case reply == MsgProductTimeout:
		return nutrition.Product{}, ErrRemoteTimeout
	case strings.HasPrefix(reply, MsgHTTPError):
		status, err := strconv.Atoi(strings.TrimPrefix(reply, MsgHTTPError))
		if err != nil {
			return nutrition.Product{}, malformed(reply, "bad http status")
		}
		return nutrition.Product{}, &HTTPError{Status: status}
	case !strings.HasPrefix(reply, MsgProduct):
		return nutrition.Product{}, unexpected(req, reply)
	}

	p, err := ParseProduct(reply)
	if err != nil {
		return nutrition.Product{}, err
	}
	if p.Barcode != barcode {
		return nutrition.Product{}, unexpected(req, reply)
	}
	return p, nil
}

// FormatProduct renders p as a PRODUCT frame.
func FormatProduct(p nutrition.Product) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return MsgProduct + strings.Join([]string{
		p.Barcode,
		strings.ReplaceAll(p.Name, ";", ","),
		f(p.PerGram.Carb),
		f(p.PerGram.Fat),
		f(p.PerGram.Protein),
		f(p.PerGram.Kcal),
	}, ";")
}

// ParseProduct parses PRODUCT:<barcode>;<name>;<carb>;<fat>;<protein>;<kcal>
// with per-gram values.
func ParseProduct(frame string) (nutrition.Product, error) {
	body, ok := strings.CutPrefix(frame, MsgProduct)
	if !ok {
		return nutrition.Product{}, malformed(frame, "not a product")
	}
	fields := strings.Split(body, ";")
	if len(fields) != 6 {
		return nutrition.Product{}, malformed(frame, fmt.Sprintf("want 6 fields, got %d", len(fields)))
	}
	if fields[0] == "" {
		return nutrition.Product{}, malformed(frame, "empty barcode")
	}
	var vals [4]float64
	for i, s := range fields[2:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || v < 0 {
			return nutrition.Product{}, malformed(frame, "bad nutrient value")
		}
		vals[i] = v
	}
	return nutrition.NewProduct(fields[0], fields[1], nutrition.Values{
		Carb:    vals[0],
		Fat:     vals[1],
		Protein: vals[2],
		Kcal:    vals[3],
	}), nil
}

package binance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

var errMissingCredentials = errors.New("binance: api key and secret required")

// Códigos de error de la API que tienen equivalente en el dominio.
const (
	codeInvalidSymbol       = -1121
	codeFilterFailure       = -1013
	codeInsufficientBalance = -2010
)

// APIError es un error 4xx devuelto por Binance.
type APIError struct {
	Status int
	Code   int64
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance api error %d (code %d): %s", e.Status, e.Code, e.Msg)
}

// Unwrap traduce los códigos conocidos a los errores del dominio para que
// las estrategias los traten como benignos.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == codeInvalidSymbol:
		return domain.ErrPriceNotFound
	case e.Code == codeInsufficientBalance && strings.Contains(strings.ToLower(e.Msg), "insufficient balance"):
		return domain.ErrInsufficientBalance
	case e.Code == codeFilterFailure && strings.Contains(e.Msg, "NOTIONAL"):
		return domain.ErrBelowMinNotional
	}
	return nil
}

func parseAPIError(status int, body []byte) error {
	v := gjson.ParseBytes(body)
	msg := v.Get("msg").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &APIError{Status: status, Code: v.Get("code").Int(), Msg: msg}
}

// symbolInfo son los filtros de un mercado que afectan a órdenes a mercado.
type symbolInfo struct {
	Symbol         string
	Base           string
	Quote          string
	Trading        bool
	MinNotional    float64
	StepSize       string // LOT_SIZE, como string para no perder precisión
	MinQty         float64
	QuotePrecision int32
}

// orderFill es el resultado relevante de POST /api/v3/order.
type orderFill struct {
	OrderID     int64
	Symbol      string
	Status      string
	ExecutedQty float64
	QuoteQty    float64
}

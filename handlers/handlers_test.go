package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"foodhub/models"

	"github.com/gin-gonic/gin"
)

func TestNextStep(t *testing.T) {
	tests := []struct {
		method models.PaymentMethod
		want   string
	}{
		{models.MethodCOD, "/orders/7/result?status=success"},
		{models.MethodBank, "/bankpay?order_id=7"},
		{models.MethodCard, "/mockpay?order_id=7&method=CARD"},
		{models.MethodEWallet, "/mockpay?order_id=7&method=EWALLET"},
	}
	for _, tt := range tests {
		if got := nextStep(7, tt.method); got != tt.want {
			t.Errorf("nextStep(%s) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
	if id, err := parseID(" 42 "); err != nil || id != 42 {
		t.Errorf("parseID = %d, %v", id, err)
	}
	if got := backTo("/cart", "x"); got != "/restaurants" {
		t.Errorf("backTo = %q", got)
	}
	if got := backTo("/cart", "3"); got != "/cart/3" {
		t.Errorf("backTo = %q", got)
	}
}

func TestFormPaymentMethod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		form url.Values
		want models.PaymentMethod
	}{
		{"absent", url.Values{}, models.MethodCOD},
		{"blank", url.Values{"payment_method": {""}}, models.MethodCard},
		{"unknown", url.Values{"payment_method": {"PAYPAL"}}, models.MethodCard},
		{"lower case", url.Values{"payment_method": {"bank"}}, models.MethodBank},
		{"cod", url.Values{"payment_method": {"COD"}}, models.MethodCOD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			req := httptest.NewRequest(http.MethodPost, "/checkout/1", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			c.Request = req
			if got := formPaymentMethod(c); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

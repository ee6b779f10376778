//go:build integration

package integration

import (
	"math"
	"net/http"
	"strings"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func newSession(t *testing.T) string {
	t.Helper()

	resp := doPost(t, "/api/sessions", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d", resp.StatusCode)
	}
	id := decodeJSON[map[string]string](t, resp)["sessionId"]
	if id == "" {
		t.Fatal("empty session id")
	}
	return id
}

func findProduct(t *testing.T, name string) productResponse {
	t.Helper()

	resp := doGet(t, "/api/products")
	defer resp.Body.Close()
	for _, p := range decodeJSON[[]productResponse](t, resp) {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("seeded product %q not found", name)
	return productResponse{}
}

func addItem(t *testing.T, session, productID string) cartResponse {
	t.Helper()

	resp := doPost(t, "/api/sessions/"+session+"/cart/items", map[string]string{"productId": productID})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[cartResponse](t, resp)
}

func TestCheckout_FullFlow(t *testing.T) {
	session := newSession(t)
	notebook := findProduct(t, "Caderno pautado") // 12.50

	addItem(t, session, notebook.ID)
	cart := addItem(t, session, notebook.ID)

	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", cart.Lines)
	}
	if !approx(cart.Totals.Subtotal, 25.00) {
		t.Fatalf("subtotal: got %v, want 25.00", cart.Totals.Subtotal)
	}

	// Default tax rate is 10%.
	resp := doPost(t, "/api/sessions/"+session+"/checkout/price", nil)
	totals := decodeJSON[totalsResponse](t, resp)
	resp.Body.Close()
	if !approx(totals.TaxAmount, 2.50) || !approx(totals.Total, 27.50) {
		t.Fatalf("priced totals: got %+v", totals)
	}

	resp = doPost(t, "/api/sessions/"+session+"/checkout/payment", map[string]string{"method": "cash"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("begin payment: expected 200, got %d", resp.StatusCode)
	}

	resp = doPost(t, "/api/sessions/"+session+"/checkout/confirm", map[string]string{"tendered": "30.00"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}

	confirm := decodeJSON[confirmResponse](t, resp)
	if !strings.HasPrefix(confirm.OrderNumber, "OS-") {
		t.Errorf("order number %q lacks OS- prefix", confirm.OrderNumber)
	}
	if confirm.OrderID == "" {
		t.Error("empty order id")
	}
	if !approx(confirm.Change, 2.50) {
		t.Errorf("change: got %v, want 2.50", confirm.Change)
	}

	// The cart is empty after finalization.
	resp2 := doGet(t, "/api/sessions/"+session+"/cart")
	defer resp2.Body.Close()
	final := decodeJSON[cartResponse](t, resp2)
	if final.State != "finalized" || len(final.Lines) != 0 {
		t.Errorf("after finalize: state %q with %d lines", final.State, len(final.Lines))
	}
}

func TestCheckout_OrderNumbersAreUnique(t *testing.T) {
	pen := findProduct(t, "Caneta esferográfica") // 3.90

	var numbers []string
	for range 2 {
		session := newSession(t)
		addItem(t, session, pen.ID)

		resp := doPost(t, "/api/sessions/"+session+"/checkout/price", nil)
		resp.Body.Close()
		resp = doPost(t, "/api/sessions/"+session+"/checkout/payment", map[string]string{"method": "card"})
		resp.Body.Close()

		resp = doPost(t, "/api/sessions/"+session+"/checkout/confirm", map[string]string{"tendered": "4.29"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
		}
		numbers = append(numbers, decodeJSON[confirmResponse](t, resp).OrderNumber)
		resp.Body.Close()
	}

	if numbers[0] == numbers[1] {
		t.Fatalf("both orders got number %q", numbers[0])
	}
}

func TestCheckout_InsufficientCash(t *testing.T) {
	session := newSession(t)
	pen := findProduct(t, "Caneta esferográfica")
	addItem(t, session, pen.ID)

	resp := doPost(t, "/api/sessions/"+session+"/checkout/price", nil)
	resp.Body.Close()
	resp = doPost(t, "/api/sessions/"+session+"/checkout/payment", map[string]string{"method": "cash"})
	resp.Body.Close()

	resp = doPost(t, "/api/sessions/"+session+"/checkout/confirm", map[string]string{"tendered": "1.00"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	// The rejection keeps the payment step open; a correct tender settles.
	resp2 := doPost(t, "/api/sessions/"+session+"/checkout/confirm", map[string]string{"tendered": "4.29"})
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("retry confirm: expected 200, got %d", resp2.StatusCode)
	}
}

func TestCheckout_DiscountBeforeTax(t *testing.T) {
	session := newSession(t)
	notebook := findProduct(t, "Caderno pautado") // 12.50
	addItem(t, session, notebook.ID)

	resp := do(t, http.MethodPut, "/api/sessions/"+session+"/cart/discount",
		map[string]any{"type": "percent", "value": "20"})
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	// 12.50 - 20% = 10.00 taxable, 1.00 tax, 11.00 total.
	if !approx(cart.Totals.DiscountAmount, 2.50) {
		t.Errorf("discount: got %v, want 2.50", cart.Totals.DiscountAmount)
	}
	if !approx(cart.Totals.TaxAmount, 1.00) {
		t.Errorf("tax: got %v, want 1.00 (tax must apply after discount)", cart.Totals.TaxAmount)
	}
	if !approx(cart.Totals.Total, 11.00) {
		t.Errorf("total: got %v, want 11.00", cart.Totals.Total)
	}
}

func TestSession_NotFound(t *testing.T) {
	resp := doGet(t, "/api/sessions/not-a-session/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error body code: got %d", body.Code)
	}
}

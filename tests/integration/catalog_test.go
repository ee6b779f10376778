//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < 7 {
		t.Fatalf("expected at least 7 seeded products, got %d", len(products))
	}

	for _, p := range products {
		if p.SKU == "" {
			t.Errorf("product %q has empty SKU", p.Name)
		}
		// Generated SKUs look like ELE-001-XXXX.
		if strings.Count(p.SKU, "-") != 2 {
			t.Errorf("product %q has malformed SKU %q", p.Name, p.SKU)
		}
		if p.Price <= 0 {
			t.Errorf("product %q has non-positive price %v", p.Name, p.Price)
		}
	}
}

func TestListCategories(t *testing.T) {
	resp := doGet(t, "/api/categories")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	categories := decodeJSON[[]categoryResponse](t, resp)
	codes := make(map[string]string)
	for _, c := range categories {
		codes[c.Name] = c.Code
	}

	want := map[string]string{
		"Eletrônicos": "ELE",
		"Móveis":      "MVE",
		"Papelaria":   "PAP",
	}
	for name, code := range want {
		if codes[name] != code {
			t.Errorf("category %q: got code %q, want %q", name, codes[name], code)
		}
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/does-not-exist")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGenerateCode(t *testing.T) {
	t.Run("taken category code is bumped", func(t *testing.T) {
		resp := doPost(t, "/api/codes/category", map[string]string{"seed": "Eletrônicos"})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		code := decodeJSON[map[string]string](t, resp)["code"]
		if code == "ELE" {
			t.Fatal("generator returned a code that is already taken")
		}
		if !strings.HasPrefix(code, "ELE") {
			t.Fatalf("expected an ELE-prefixed code, got %q", code)
		}
	})

	t.Run("unknown namespace", func(t *testing.T) {
		resp := doPost(t, "/api/codes/serial", map[string]string{})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumil/phonebook/internal/contact"
	"github.com/drumil/phonebook/internal/store"
)

const (
	phoneWarning = "Phone number should contain only digits."
	emailWarning = "Invalid email address format."
)

func newTestHandler(t *testing.T, variant contact.Variant, opts ...Option) (http.Handler, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return New(s, variant, zerolog.Nop(), opts...).Routes(), s
}

func post(t *testing.T, h http.Handler, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func get(t *testing.T, h http.Handler, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result(), rec.Body.String()
}

func count(t *testing.T, s store.Store) int {
	t.Helper()
	n, err := s.Len(context.Background())
	require.NoError(t, err)
	return n
}

func form(name, phone, email string) url.Values {
	return url.Values{"name": {name}, "phone": {phone}, "email": {email}}
}

func TestIndex_EmptyStore(t *testing.T) {
	h, _ := newTestHandler(t, contact.VariantValidated)

	resp, body := get(t, h)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, 1, strings.Count(body, "<tr>"))
	assert.Contains(t, body, "<th>Email</th>")
	assert.NotContains(t, body, "alert")
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestAdd_ValidContactAppendsLast(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantValidated)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, contact.Contact{Name: "Ann", Phone: "1", Email: "ann@x.io"}))

	resp := post(t, h, form("Bob Smith", "5551234", "bob@example.com"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Empty(t, resp.Cookies())

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	last := all[1]
	assert.Equal(t, "Bob Smith", last.Name)
	assert.Equal(t, "5551234", last.Phone)
	assert.Equal(t, "bob@example.com", last.Email)
	assert.False(t, last.AddedAt.IsZero())

	_, body := get(t, h)
	assert.Contains(t, body, "<td>Bob Smith</td>")
	assert.Contains(t, body, "<td>bob@example.com</td>")
}

func TestAdd_RejectsNonDigitPhone(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantValidated)

	resp := post(t, h, form("Ann", "12a", "not-an-email"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 0, count(t, s))

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)

	_, body := get(t, h, cookies...)
	assert.Contains(t, body, phoneWarning)
	assert.NotContains(t, body, emailWarning)
}

func TestAdd_RejectsBadEmail(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantValidated)

	resp := post(t, h, form("Ann", "555", "not-an-email"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 0, count(t, s))

	_, body := get(t, h, resp.Cookies()...)
	assert.Contains(t, body, emailWarning)
	assert.NotContains(t, body, phoneWarning)
}

func TestAdd_AcceptsShortEmail(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantValidated)

	resp := post(t, h, form("Ann", "555", "a@b.co"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 1, count(t, s))
}

func TestWarning_ShownOnce(t *testing.T) {
	h, _ := newTestHandler(t, contact.VariantValidated)

	resp := post(t, h, form("Ann", "12a", "a@b.co"))
	cookies := resp.Cookies()

	first, body := get(t, h, cookies...)
	assert.Contains(t, body, phoneWarning)

	var cleared bool
	for _, c := range first.Cookies() {
		if c.Name == warningCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "render should clear the warning cookie")

	// The browser drops the cleared cookie, so the next render carries none.
	_, body = get(t, h)
	assert.NotContains(t, body, phoneWarning)
	assert.NotContains(t, body, "alert")
}

func TestWarning_UnknownCodeIgnored(t *testing.T) {
	h, _ := newTestHandler(t, contact.VariantValidated)

	_, body := get(t, h, &http.Cookie{Name: warningCookie, Value: "<script>"})
	assert.NotContains(t, body, "alert")
	assert.NotContains(t, body, "<script>")
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	h, _ := newTestHandler(t, contact.VariantValidated)

	names := []string{"Charlie", "Alice", "Bob"}
	for i, n := range names {
		resp := post(t, h, form(n, strings.Repeat("1", i+1), strings.ToLower(n)+"@x.io"))
		require.Equal(t, http.StatusFound, resp.StatusCode)
	}

	_, body := get(t, h)
	prev := -1
	for _, n := range names {
		idx := strings.Index(body, "<td>"+n+"</td>")
		require.NotEqual(t, -1, idx, n)
		assert.Greater(t, idx, prev, n)
		prev = idx
	}
}

func TestAdd_AllowsDuplicates(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantValidated)

	post(t, h, form("Ann", "555", "a@b.co"))
	post(t, h, form("Ann", "555", "a@b.co"))
	assert.Equal(t, 2, count(t, s))
}

func TestAdd_MissingField(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantValidated)

	for _, missing := range []string{"name", "phone", "email"} {
		t.Run(missing, func(t *testing.T) {
			f := form("Ann", "555", "a@b.co")
			f.Del(missing)
			resp := post(t, h, f)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, 0, count(t, s))
		})
	}
}

func TestAdd_EmptyNameAccepted(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantValidated)

	resp := post(t, h, form("", "555", "a@b.co"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 1, count(t, s))
}

func TestBasicVariant(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantBasic)

	resp := post(t, h, url.Values{"name": {"Ann"}, "phone": {"12a"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
	assert.Equal(t, 1, count(t, s))

	_, body := get(t, h)
	assert.Contains(t, body, "<td>12a</td>")
	assert.NotContains(t, body, "<th>Email</th>")
	assert.NotContains(t, body, `name="email"`)

	resp = post(t, h, url.Values{"name": {"Bob"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, count(t, s))
}

func TestIndex_EscapesContactFields(t *testing.T) {
	h, s := newTestHandler(t, contact.VariantBasic)
	require.NoError(t, s.Add(context.Background(), contact.Contact{Name: "<script>alert(1)</script>", Phone: "1"}))

	_, body := get(t, h)
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, contact.VariantValidated)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/add", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerNow(t *testing.T) {
	trigger := func(t *testing.T, h http.Handler, key string) int {
		t.Helper()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trigger-now?key="+url.QueryEscape(key), nil))
		return rec.Code
	}

	t.Run("not configured", func(t *testing.T) {
		h, _ := newTestHandler(t, contact.VariantValidated)
		assert.Equal(t, http.StatusNotFound, trigger(t, h, "x"))
	})

	t.Run("no secret", func(t *testing.T) {
		h, _ := newTestHandler(t, contact.VariantValidated, WithTrigger("", func() {}))
		assert.Equal(t, http.StatusInternalServerError, trigger(t, h, ""))
	})

	t.Run("wrong key", func(t *testing.T) {
		h, _ := newTestHandler(t, contact.VariantValidated, WithTrigger("s3cret", func() {
			t.Error("job must not run")
		}))
		assert.Equal(t, http.StatusUnauthorized, trigger(t, h, "nope"))
	})

	t.Run("runs job", func(t *testing.T) {
		ran := make(chan struct{})
		h, _ := newTestHandler(t, contact.VariantValidated, WithTrigger("s3cret", func() { close(ran) }))
		assert.Equal(t, http.StatusOK, trigger(t, h, "s3cret"))

		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatal("job did not run")
		}
	})
}

package oid

import (
	"context"
	"errors"
	"testing"

	"github.com/matzehuels/pglocktrace/pkg/cache"
	pgerrors "github.com/matzehuels/pglocktrace/pkg/errors"
)

func TestPlaceholder(t *testing.T) {
	if got := Placeholder(16384); got != "Oid 16384" {
		t.Errorf("Placeholder(16384) = %q", got)
	}
}

func TestStatic(t *testing.T) {
	r := Static{16384: "public.t1"}
	ctx := context.Background()
	if got := r.Resolve(ctx, 16384); got != "public.t1" {
		t.Errorf("Resolve(16384) = %q", got)
	}
	if got := r.Resolve(ctx, 1); got != "Oid 1" {
		t.Errorf("Resolve(1) = %q", got)
	}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    Spec
		wantErr bool
	}{
		{"1234:postgres://localhost/app", Spec{Pid: 1234, URL: "postgres://localhost/app"}, false},
		{"7:postgresql://u:p@db:5432/x", Spec{Pid: 7, URL: "postgresql://u:p@db:5432/x"}, false},
		{"postgres://localhost/app", Spec{}, true},
		{"abc:postgres://localhost/app", Spec{}, true},
		{"-1:postgres://localhost/app", Spec{}, true},
		{"12:mysql://localhost/app", Spec{}, true},
		{"12", Spec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpec(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSpec error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !pgerrors.Is(err, pgerrors.ErrCodeInvalidResolver) {
				t.Errorf("error code = %s, want INVALID_RESOLVER", pgerrors.GetCode(err))
			}
			if got != tt.want {
				t.Errorf("ParseSpec = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSpecs(t *testing.T) {
	specs := []string{"1:postgres://h/a", "2:postgres://h/b"}

	if _, err := ParseSpecs(specs, []int{1, 2, 3}); err != nil {
		t.Errorf("ParseSpecs error: %v", err)
	}
	if _, err := ParseSpecs(specs, nil); err != nil {
		t.Errorf("ParseSpecs without pid filter error: %v", err)
	}
	if _, err := ParseSpecs(specs, []int{1}); err == nil {
		t.Error("resolver for an untraced pid should fail")
	}
	if _, err := ParseSpecs([]string{"1:postgres://h/a", "1:postgres://h/b"}, nil); err == nil {
		t.Error("duplicate pid should fail")
	}
}

type fakeDB struct {
	all     map[uint32]string
	allErr  error
	one     map[uint32]string
	oneErr  error
	lookups int
	closed  bool
}

func (f *fakeDB) relations(context.Context) (map[uint32]string, error) {
	return f.all, f.allErr
}

func (f *fakeDB) relation(_ context.Context, oid uint32) (string, bool, error) {
	f.lookups++
	if f.oneErr != nil {
		return "", false, f.oneErr
	}
	name, ok := f.one[oid]
	return name, ok, nil
}

func (f *fakeDB) close(context.Context) error {
	f.closed = true
	return nil
}

func TestCatalogWarm(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{all: map[uint32]string{16384: "public.t1", 16390: "public.t2"}}
	c := newCatalog("postgres://h/app", db, CatalogOptions{})

	if n := c.Warm(ctx); n != 2 {
		t.Errorf("Warm() = %d, want 2", n)
	}
	if got := c.Resolve(ctx, 16390); got != "public.t2" {
		t.Errorf("Resolve(16390) = %q", got)
	}
	if db.lookups != 0 {
		t.Errorf("warm hit queried the database %d times", db.lookups)
	}
}

func TestCatalogLookup(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{one: map[uint32]string{20000: "app.created_later"}}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newCatalog("postgres://h/app", db, CatalogOptions{Cache: fc})

	if got := c.Resolve(ctx, 20000); got != "app.created_later" {
		t.Errorf("Resolve(20000) = %q", got)
	}
	c.Resolve(ctx, 20000)
	if db.lookups != 1 {
		t.Errorf("lookups = %d, want 1", db.lookups)
	}
	if got := c.Resolve(ctx, 1); got != "Oid 1" {
		t.Errorf("Resolve(1) = %q, want placeholder", got)
	}

	// A second catalog finds the name in the shared cache.
	other := &fakeDB{}
	c2 := newCatalog("postgres://h/app", other, CatalogOptions{Cache: fc})
	if got := c2.Resolve(ctx, 20000); got != "app.created_later" {
		t.Errorf("cached Resolve(20000) = %q", got)
	}
	if other.lookups != 0 {
		t.Errorf("cache hit queried the database %d times", other.lookups)
	}
}

func TestCatalogErrorsYieldPlaceholder(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{oneErr: errors.New("connection reset")}
	c := newCatalog("postgres://h/app", db, CatalogOptions{})
	if got := c.Resolve(ctx, 42); got != "Oid 42" {
		t.Errorf("Resolve(42) = %q, want placeholder", got)
	}
}

func TestCatalogWarmFallsBackToSnapshot(t *testing.T) {
	ctx := context.Background()
	fc, _ := cache.NewFileCache(t.TempDir())

	first := newCatalog("postgres://h/app", &fakeDB{all: map[uint32]string{5: "public.dropped"}}, CatalogOptions{Cache: fc})
	first.Warm(ctx)

	broken := &fakeDB{allErr: errors.New("timeout"), oneErr: errors.New("timeout")}
	second := newCatalog("postgres://h/app", broken, CatalogOptions{Cache: fc})
	if n := second.Warm(ctx); n != 1 {
		t.Errorf("Warm() from snapshot = %d, want 1", n)
	}
	if got := second.Resolve(ctx, 5); got != "public.dropped" {
		t.Errorf("Resolve(5) = %q", got)
	}
}

func TestCatalogClose(t *testing.T) {
	db := &fakeDB{}
	c := newCatalog("postgres://h/app", db, CatalogOptions{})
	if err := c.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !db.closed {
		t.Error("Close did not close the connection")
	}
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "mysql://localhost/app", CatalogOptions{})
	if !pgerrors.Is(err, pgerrors.ErrCodeInvalidResolver) {
		t.Errorf("Connect error = %v, want INVALID_RESOLVER", err)
	}
}

func TestRedact(t *testing.T) {
	if got := redact("postgres://user:secret@h/app"); got != "postgres://user:xxxxx@h/app" {
		t.Errorf("redact = %q", got)
	}
}

func TestConnConfigApplicationName(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		appName string
		want    string
	}{
		{"set when absent", "postgres://localhost/app", "pglocktrace/dev", "pglocktrace/dev"},
		{"url wins", "postgres://localhost/app?application_name=ops", "pglocktrace/dev", "ops"},
		{"empty leaves unset", "postgres://localhost/app", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := connConfig(tt.url, tt.appName)
			if err != nil {
				t.Fatalf("connConfig error: %v", err)
			}
			if got := cfg.RuntimeParams["application_name"]; got != tt.want {
				t.Errorf("application_name = %q, want %q", got, tt.want)
			}
		})
	}
}

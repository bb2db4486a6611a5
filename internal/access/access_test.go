package access

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surtidora/api/internal/enum"
)

func TestResolveProfile(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		id   *Identity
		want string
	}{
		{"no identity", nil, enum.ProfileNone},
		{"empty email", &Identity{Email: "  "}, enum.ProfileNone},
		{"admin exact", &Identity{Email: "admin@surtidora.pe"}, enum.ProfileAdmin},
		{"admin ignores case", &Identity{Email: "Admin@Surtidora.PE"}, enum.ProfileAdmin},
		{"admin is exact not substring", &Identity{Email: "xadmin@surtidora.pe"}, enum.ProfileRetail},
		{"wholesale marker", &Identity{Email: "bodega.mayorista@gmail.com"}, enum.ProfileWholesale},
		{"wholesale marker ignores case", &Identity{Email: "MAYORISTA.norte@gmail.com"}, enum.ProfileWholesale},
		{"plain customer", &Identity{Email: "rosa@gmail.com"}, enum.ProfileRetail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ResolveProfile(tt.id))
		})
	}
}

func TestResolveProfile_AdminBeatsWholesale(t *testing.T) {
	p := DefaultPolicy()
	p.AdminEmails = append(p.AdminEmails, "jefe.mayorista@surtidora.pe")
	assert.Equal(t, enum.ProfileAdmin, p.ResolveProfile(&Identity{Email: "jefe.mayorista@surtidora.pe"}))
}

func TestAuthorize(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		profile string
		class   string
		want    Decision
	}{
		{"anyone on public", enum.ProfileNone, enum.RouteClassPublic, Decision{Allowed: true}},
		{"anonymous on admin goes to login", enum.ProfileNone, enum.RouteClassAdmin, Decision{Redirect: "/login"}},
		{"anonymous on shop goes to login", enum.ProfileNone, enum.RouteClassShop, Decision{Redirect: "/login"}},
		{"retail on admin goes home", enum.ProfileRetail, enum.RouteClassAdmin, Decision{Redirect: "/tienda"}},
		{"retail on wholesale goes home", enum.ProfileRetail, enum.RouteClassWholesale, Decision{Redirect: "/tienda"}},
		{"wholesale on wholesale", enum.ProfileWholesale, enum.RouteClassWholesale, Decision{Allowed: true}},
		{"admin on admin", enum.ProfileAdmin, enum.RouteClassAdmin, Decision{Allowed: true}},
		{"admin on checkout goes home", enum.ProfileAdmin, enum.RouteClassCheckout, Decision{Redirect: "/admin"}},
		{"unknown class goes to login", enum.ProfileAdmin, "billing", Decision{Redirect: "/login"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Authorize(tt.profile, tt.class))
		})
	}
}

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicy_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.yaml")
	content := `
admin_emails:
  - gerencia@surtidora.pe
wholesale_markers: [mayorista, distribuidora]
home:
  retail: /catalogo
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"gerencia@surtidora.pe"}, p.AdminEmails)
	assert.Equal(t, enum.ProfileWholesale, p.ResolveProfile(&Identity{Email: "ventas@distribuidora-sur.pe"}))
	assert.Equal(t, "/catalogo", p.HomeRoute(enum.ProfileRetail))
	assert.Equal(t, "/admin", p.HomeRoute(enum.ProfileAdmin), "unlisted home keys keep defaults")
	assert.Equal(t, "/login", p.LoginRoute)
	assert.Equal(t, Decision{Redirect: "/catalogo"}, p.Authorize(enum.ProfileRetail, enum.RouteClassAdmin))
}

func TestLoadPolicy_RejectsUnknownProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.yaml")
	content := `
routes:
  admin:
    require_auth: true
    allowed: [superuser]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "superuser")
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

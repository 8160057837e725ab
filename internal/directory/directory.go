// Package directory classifies chat identities against the static admin
// configuration loaded at startup.
package directory

import (
	"fmt"
	"slices"

	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/domain"
)

// Directory is read-only after construction and safe for concurrent use.
type Directory struct {
	primary   []domain.Identity
	secondary []domain.Identity
	super     domain.Identity
	names     map[domain.Identity]string

	primarySet   map[domain.Identity]struct{}
	secondarySet map[domain.Identity]struct{}
}

// New builds a Directory from configuration.
func New(cfg config.DirectoryConfig) *Directory {
	d := &Directory{
		super:        domain.Identity(cfg.SuperAdmin),
		names:        make(map[domain.Identity]string, len(cfg.AdminNames)),
		primarySet:   make(map[domain.Identity]struct{}),
		secondarySet: make(map[domain.Identity]struct{}),
	}
	for _, id := range cfg.PrimaryAdmins {
		if _, dup := d.primarySet[domain.Identity(id)]; dup || id == "" {
			continue
		}
		d.primarySet[domain.Identity(id)] = struct{}{}
		d.primary = append(d.primary, domain.Identity(id))
	}
	for _, id := range cfg.SecondaryAdmins {
		if _, dup := d.secondarySet[domain.Identity(id)]; dup || id == "" {
			continue
		}
		d.secondarySet[domain.Identity(id)] = struct{}{}
		d.secondary = append(d.secondary, domain.Identity(id))
	}
	for id, name := range cfg.AdminNames {
		d.names[domain.Identity(id)] = name
	}
	return d
}

// Classify returns the single role of id. Unknown identities are users.
func (d *Directory) Classify(id domain.Identity) domain.Role {
	switch {
	case d.IsSuper(id):
		return domain.RoleSuperAdmin
	case d.IsPrimary(id):
		return domain.RolePrimaryAdmin
	case d.IsSecondary(id):
		return domain.RoleSecondaryAdmin
	default:
		return domain.RoleUser
	}
}

// DisplayName returns the configured friendly name or a generic label.
func (d *Directory) DisplayName(id domain.Identity) string {
	if name, ok := d.names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Admin %s", id)
}

func (d *Directory) IsPrimary(id domain.Identity) bool {
	_, ok := d.primarySet[id]
	return ok
}

func (d *Directory) IsSecondary(id domain.Identity) bool {
	_, ok := d.secondarySet[id]
	return ok
}

func (d *Directory) IsSuper(id domain.Identity) bool {
	return d.super != "" && id == d.super
}

// IsAdmin reports membership in any tier, including the super admin.
func (d *Directory) IsAdmin(id domain.Identity) bool {
	return d.IsSuper(id) || d.IsPrimary(id) || d.IsSecondary(id)
}

// SuperAdmin returns the configured super admin, if any.
func (d *Directory) SuperAdmin() (domain.Identity, bool) {
	return d.super, d.super != ""
}

// PrimaryAdmins returns the primary tier in configuration order.
func (d *Directory) PrimaryAdmins() []domain.Identity {
	return slices.Clone(d.primary)
}

// SecondaryAdmins returns the secondary tier in configuration order.
func (d *Directory) SecondaryAdmins() []domain.Identity {
	return slices.Clone(d.secondary)
}

// AllAdmins returns both routing tiers without duplicates, primary first.
func (d *Directory) AllAdmins() []domain.Identity {
	all := slices.Clone(d.primary)
	for _, id := range d.secondary {
		if !d.IsPrimary(id) {
			all = append(all, id)
		}
	}
	return all
}

// Roles returns every tier id belongs to, most privileged first. Plain users
// get RoleUser alone.
func (d *Directory) Roles(id domain.Identity) []domain.Role {
	var roles []domain.Role
	if d.IsSuper(id) {
		roles = append(roles, domain.RoleSuperAdmin)
	}
	if d.IsPrimary(id) {
		roles = append(roles, domain.RolePrimaryAdmin)
	}
	if d.IsSecondary(id) {
		roles = append(roles, domain.RoleSecondaryAdmin)
	}
	if len(roles) == 0 {
		roles = append(roles, domain.RoleUser)
	}
	return roles
}

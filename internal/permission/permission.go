package permission

import (
	"fmt"
	"strings"
)

// Permission is a single capability flag. Flags occupy distinct bits so they
// can be combined into a Mask.
type Permission uint32

const (
	Write Permission = 4
	Admin Permission = 16
)

var names = map[Permission]string{
	Write: "WRITE",
	Admin: "ADMIN",
}

// All returns every known permission in ascending bit order.
func All() []Permission {
	return []Permission{Write, Admin}
}

func (p Permission) String() string {
	if name, ok := names[p]; ok {
		return name
	}
	return fmt.Sprintf("Permission(%d)", uint32(p))
}

func ParsePermission(name string) (Permission, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for p, n := range names {
		if n == upper {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown permission %q", name)
}

// Mask is a set of permissions stored as a bitmask.
type Mask uint32

// Add sets the bits of p.
func (m Mask) Add(p Permission) Mask {
	return m | Mask(p)
}

// Has reports whether every bit of p is set in m.
func (m Mask) Has(p Permission) bool {
	return m&Mask(p) == Mask(p)
}

// Remove clears the bits of p only when p is fully present, so other
// permissions are never touched.
func (m Mask) Remove(p Permission) Mask {
	if !m.Has(p) {
		return m
	}
	return m &^ Mask(p)
}

func (m Mask) Reset() Mask {
	return 0
}

// Permissions lists the known permissions contained in m.
func (m Mask) Permissions() []Permission {
	var out []Permission
	for _, p := range All() {
		if m.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m Mask) String() string {
	perms := m.Permissions()
	parts := make([]string, 0, len(perms))
	for _, p := range perms {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, "|")
}

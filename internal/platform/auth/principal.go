package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is the portal a user signs in to.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RolePatient      Role = "patient"
	RolePharmacist   Role = "pharmacist"
	RoleReceptionist Role = "receptionist"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleDoctor, RolePatient, RolePharmacist, RoleReceptionist}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Capability names one thing a principal may do.
type Capability string

const (
	CapViewDirectory      Capability = "directory:read"
	CapManageClinics      Capability = "clinics:write"
	CapManageUsers        Capability = "users:write"
	CapViewSlots          Capability = "slots:read"
	CapBookOwn            Capability = "appointments:book-own"
	CapBookForPatient     Capability = "appointments:book-for-patient"
	CapViewOwnSchedule    Capability = "appointments:read-own"
	CapViewDoctorSchedule Capability = "appointments:doctor-schedule"
	CapViewAnyAppointment Capability = "appointments:read-any"
	CapUpdateAppointment  Capability = "appointments:update"
	CapCancelOwn          Capability = "appointments:cancel-own"
	CapCheckCDS           Capability = "cds:check"
	CapManageCDS          Capability = "cds:write"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapViewDirectory, CapManageClinics, CapManageUsers, CapViewSlots,
		CapBookForPatient, CapViewAnyAppointment, CapUpdateAppointment, CapManageCDS,
	},
	RoleDoctor: {
		CapViewDirectory, CapViewSlots, CapViewDoctorSchedule, CapUpdateAppointment, CapCheckCDS,
	},
	RolePatient: {
		CapViewDirectory, CapViewSlots, CapBookOwn, CapViewOwnSchedule, CapCancelOwn,
	},
	RolePharmacist: {
		CapViewDirectory, CapCheckCDS, CapManageCDS,
	},
	RoleReceptionist: {
		CapViewDirectory, CapViewSlots, CapBookForPatient, CapViewAnyAppointment, CapUpdateAppointment,
	},
}

// Principal is the authenticated caller.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

// Can reports whether the principal holds the capability.
func (p Principal) Can(c Capability) bool {
	for _, granted := range roleCapabilities[p.Role] {
		if granted == c {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

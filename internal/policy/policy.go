// Package policy holds every role and ownership rule for visitors and passes.
// All functions are pure; services consult them before reading or mutating records.
package policy

import (
	"time"

	"visitorpass/internal/domain"
)

// CanCreateVisitorFor reports whether actor may register a visit hosted by hostID.
// Hosts may only register their own visitors; admins and guards may register for any host.
func CanCreateVisitorFor(hostID string, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleGuard:
		return true
	case domain.RoleHost:
		return hostID == actor.ID
	}
	return false
}

// CanViewVisitor reports whether actor may read v at time now.
// Guards see entries they created and visitors approved today.
func CanViewVisitor(v *domain.Visitor, actor domain.Actor, now time.Time) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleHost:
		return v.HostID == actor.ID
	case domain.RoleGuard:
		if createdBy(v, actor.ID) {
			return true
		}
		return v.Status == domain.VisitorApproved && v.EntryTime != nil && sameDay(*v.EntryTime, now)
	}
	return false
}

// CanMutateVisitor reports whether actor may change or delete v.
func CanMutateVisitor(v *domain.Visitor, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleHost:
		return v.HostID == actor.ID
	case domain.RoleGuard:
		return createdBy(v, actor.ID)
	}
	return false
}

// CanListAllVisitors reports whether actor may lift the own-hosted restriction on listings.
func CanListAllVisitors(actor domain.Actor) bool {
	return actor.Role == domain.RoleAdmin
}

// CanIssuePass reports whether actor may mint a pass for v.
func CanIssuePass(v *domain.Visitor, actor domain.Actor) bool {
	return CanMutateVisitor(v, actor)
}

// CanViewPass reports whether actor may read p. p.HostID must be populated.
// Guards see the passes they redeemed.
func CanViewPass(p *domain.Pass, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleHost:
		return p.HostID == actor.ID
	case domain.RoleGuard:
		return p.ApprovedBy != nil && *p.ApprovedBy == actor.ID
	}
	return false
}

// CanDeletePass reports whether actor may delete passes. Admin only.
func CanDeletePass(actor domain.Actor) bool {
	return actor.Role == domain.RoleAdmin
}

// CanRedeemPass reports whether actor may scan and redeem passes.
func CanRedeemPass(actor domain.Actor) bool {
	return actor.Role == domain.RoleGuard
}

// CanUseGuardDesk reports whether actor may use guard-only listings and lookups.
func CanUseGuardDesk(actor domain.Actor) bool {
	return actor.Role == domain.RoleGuard
}

// CanVerifyPass reports whether actor may look a pass up by its QR token.
func CanVerifyPass(actor domain.Actor) bool {
	return actor.Role == domain.RoleGuard || actor.Role == domain.RoleAdmin
}

func createdBy(v *domain.Visitor, guardID string) bool {
	return v.CreatedByGuardID != nil && *v.CreatedByGuardID == guardID
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package entities

import (
	"strings"
	"time"
)

// Permission - право доступа к заметке.
type Permission string

// Допустимые права.
const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// ParsePermission принимает только view и edit.
func ParsePermission(s string) (Permission, error) {
	switch p := Permission(strings.ToLower(strings.TrimSpace(s))); p {
	case PermissionView, PermissionEdit:
		return p, nil
	default:
		return "", ErrInvalidPermission
	}
}

// CanEdit сообщает, разрешает ли право изменение содержимого.
func (p Permission) CanEdit() bool {
	return p == PermissionEdit
}

// GrantStatus - состояние приглашения.
type GrantStatus string

// Состояния приглашения.
const (
	GrantPending  GrantStatus = "pending"
	GrantAccepted GrantStatus = "accepted"
)

// ParseGrantStatus принимает только pending и accepted.
func ParseGrantStatus(s string) (GrantStatus, error) {
	switch st := GrantStatus(s); st {
	case GrantPending, GrantAccepted:
		return st, nil
	default:
		return "", ErrInvalidGrantStatus
	}
}

// Decision - ответ получателя на приглашение.
type Decision string

// Ответы на приглашение.
const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ParseDecision принимает только accept и reject.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionAccept, DecisionReject:
		return d, nil
	default:
		return "", ErrInvalidDecision
	}
}

// ShareGrant - право конкретного пользователя на заметку.
type ShareGrant struct {
	GranteeID  string      `json:"grantee_id"`
	Permission Permission  `json:"permission"`
	Status     GrantStatus `json:"status"`
	GrantedAt  time.Time   `json:"granted_at"`
}

// GrantFor ищет приглашение пользователя.
func (n *Note) GrantFor(userID string) (ShareGrant, bool) {
	for _, g := range n.Shares {
		if g.GranteeID == userID {
			return g, true
		}
	}
	return ShareGrant{}, false
}

// UpsertGrant добавляет приглашение в статусе pending или меняет право
// существующего без сброса статуса. Возвращает итоговое приглашение и
// признак того, что оно было создано.
func (n *Note) UpsertGrant(granteeID string, perm Permission, now time.Time) (ShareGrant, bool, error) {
	if granteeID == n.OwnerID {
		return ShareGrant{}, false, ErrSelfShare
	}
	if perm != PermissionView && perm != PermissionEdit {
		return ShareGrant{}, false, ErrInvalidPermission
	}

	for i := range n.Shares {
		if n.Shares[i].GranteeID != granteeID {
			continue
		}
		if n.Shares[i].Permission == perm {
			return ShareGrant{}, false, ErrAlreadyShared
		}
		n.Shares[i].Permission = perm
		return n.Shares[i], false, nil
	}

	grant := ShareGrant{
		GranteeID:  granteeID,
		Permission: perm,
		Status:     GrantPending,
		GrantedAt:  now,
	}
	n.Shares = append(n.Shares, grant)
	return grant, true, nil
}

// Respond применяет ответ получателя: accept переводит в accepted,
// reject удаляет приглашение.
func (n *Note) Respond(granteeID string, decision Decision) error {
	for i := range n.Shares {
		if n.Shares[i].GranteeID != granteeID {
			continue
		}
		switch decision {
		case DecisionAccept:
			n.Shares[i].Status = GrantAccepted
		case DecisionReject:
			n.Shares = append(n.Shares[:i], n.Shares[i+1:]...)
		default:
			return ErrInvalidDecision
		}
		return nil
	}
	return ErrGrantNotFound
}

// RemoveGrant удаляет приглашение. Отсутствие приглашения не ошибка.
func (n *Note) RemoveGrant(granteeID string) bool {
	for i := range n.Shares {
		if n.Shares[i].GranteeID == granteeID {
			n.Shares = append(n.Shares[:i], n.Shares[i+1:]...)
			return true
		}
	}
	return false
}

// ShareLink - публичная ссылка. Хранится только хеш токена.
type ShareLink struct {
	TokenHash string
	ExpiresAt *time.Time
}

// Active сообщает, выпущена ли ссылка.
func (l ShareLink) Active() bool {
	return l.TokenHash != ""
}

// Expired сообщает, истек ли срок ссылки.
func (l ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// SetLink заменяет ссылку и возвращает хеш прежней.
func (n *Note) SetLink(tokenHash string, expiresAt *time.Time) string {
	prev := n.Link.TokenHash
	n.Link = ShareLink{TokenHash: tokenHash, ExpiresAt: expiresAt}
	return prev
}

// ClearLink отзывает ссылку и возвращает хеш прежней.
func (n *Note) ClearLink() string {
	prev := n.Link.TokenHash
	n.Link = ShareLink{}
	return prev
}

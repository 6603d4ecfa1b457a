package model

type IdentityKind int

const (
	IdentityNone IdentityKind = iota
	IdentityUser
	IdentityGuest
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityUser:
		return "user"
	case IdentityGuest:
		return "guest"
	default:
		return "none"
	}
}

// リクエストの持ち主。ユーザー > ゲスト > 未解決 の順で決まる
type Identity struct {
	Kind    IdentityKind
	UserID  int64
	Role    Role
	GuestID string
}

func UserIdentity(userID int64, role Role) Identity {
	return Identity{Kind: IdentityUser, UserID: userID, Role: role}
}

func GuestIdentity(guestID string) Identity {
	return Identity{Kind: IdentityGuest, GuestID: guestID}
}

func (i Identity) Resolved() bool { return i.Kind != IdentityNone }

func (i Identity) IsUser() bool { return i.Kind == IdentityUser && i.UserID > 0 }

func (i Identity) IsGuest() bool { return i.Kind == IdentityGuest && i.GuestID != "" }

package domain

// Player is an account able to log in. Players are created out-of-band
// (seed command) and only mutated by credential migration and cat linking.
type Player struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Credential  Credential `json:"-"`
	DisplayName string     `json:"display_name"`
	CatID       *int64     `json:"cat_id,omitempty"`
}

// PlayerIdentity is what a verified session proves about its bearer.
type PlayerIdentity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (p *Player) Identity() PlayerIdentity {
	return PlayerIdentity{ID: p.ID, Username: p.Username}
}

package engine

// AccessControl identifica o operador único do jogo.
// A identidade é fixada na construção e nunca muda.
type AccessControl struct {
	owner string
}

func NewAccessControl(owner string) AccessControl { return AccessControl{owner: owner} }

// Owner retorna a identidade do operador
func (a AccessControl) Owner() string { return a.owner }

// RequireOwner falha com ErrPermissionDenied se caller não for o operador
func (a AccessControl) RequireOwner(caller string) error {
	if a.owner == "" || caller != a.owner {
		return ErrPermissionDenied
	}
	return nil
}

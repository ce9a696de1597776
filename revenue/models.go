package revenue

import "github.com/xraph/subsplit/types"

type Balance struct {
	Address types.Address `json:"address"`
	Amount  types.Amount  `json:"amount"`
}

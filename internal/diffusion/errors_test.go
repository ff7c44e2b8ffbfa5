package diffusion

import "errors"

var errOutOfBudget = errors.New("out of budget")

package invariant

import (
	"math/big"

	dexerr "swapRouter/internal/errors"
)

// DefaultNewtonRounds is the fixed iteration count used by the stable engine.
const DefaultNewtonRounds = 5

var (
	zero    = big.NewInt(0)
	one     = big.NewInt(1)
	two     = big.NewInt(2)
	eight   = big.NewInt(8)
	hundred = big.NewInt(100)
)

// IntegerSqrt returns the largest y with y*y <= x.
func IntegerSqrt(x *big.Int) (*big.Int, error) {
	if x == nil || x.Sign() < 0 {
		return nil, dexerr.New(dexerr.KindArithmeticGuard, "negative value")
	}
	if x.Sign() == 0 {
		return big.NewInt(0), nil
	}

	y := new(big.Int).Set(x)
	sq := new(big.Int)
	q := new(big.Int)
	for sq.Mul(y, y).Cmp(x) > 0 {
		q.Quo(x, y)
		y.Add(q, y)
		y.Quo(y, two)
	}

	next := new(big.Int).Add(y, one)
	if sq.Mul(y, y).Cmp(x) > 0 || next.Mul(next, next).Cmp(x) <= 0 {
		return nil, dexerr.New(dexerr.KindArithmeticGuard, "sqrt postcondition")
	}
	return y, nil
}

// ProductQuote is the result of a constant-product swap.
type ProductQuote struct {
	AmountOut     *big.Int
	NewReserveOut *big.Int
	Fee           *big.Int
}

// ConstantProductOut prices amountIn against (reserveIn, reserveOut), taking
// amountIn/feeDivisor as the fee on the input side.
func ConstantProductOut(reserveIn, reserveOut, amountIn, feeDivisor *big.Int) (ProductQuote, error) {
	if anyNegative(reserveIn, reserveOut, amountIn, feeDivisor) {
		return ProductQuote{}, dexerr.New(dexerr.KindArithmeticGuard, "negative operand")
	}
	if feeDivisor.Sign() == 0 {
		return ProductQuote{}, dexerr.New(dexerr.KindArithmeticGuard, "zero fee divisor")
	}

	fee := new(big.Int).Quo(amountIn, feeDivisor)
	denom := new(big.Int).Add(reserveIn, amountIn)
	denom.Sub(denom, fee)
	if denom.Sign() <= 0 {
		return ProductQuote{}, dexerr.New(dexerr.KindArithmeticGuard, "empty input reserve")
	}

	newReserveOut := new(big.Int).Mul(reserveIn, reserveOut)
	newReserveOut.Quo(newReserveOut, denom)

	amountOut := new(big.Int).Sub(reserveOut, newReserveOut)
	if amountOut.Sign() < 0 {
		return ProductQuote{}, dexerr.New(dexerr.KindArithmeticGuard, "negative output")
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return ProductQuote{}, dexerr.New(dexerr.KindLiquidityExhausted, "output exhausts reserve")
	}

	return ProductQuote{AmountOut: amountOut, NewReserveOut: newReserveOut, Fee: fee}, nil
}

// Utility evaluates the flat curve u = |(x+y)^8 - (x-y)^8| and its
// derivative du = 8*|(x-y)^7 + (x+y)^7|. x-y keeps its sign, so du is not
// symmetric in x and y once y > x.
func Utility(x, y *big.Int) (u, du *big.Int) {
	plus := new(big.Int).Add(x, y)
	minus := new(big.Int).Sub(x, y)

	plus2 := new(big.Int).Mul(plus, plus)
	plus4 := new(big.Int).Mul(plus2, plus2)
	plus8 := new(big.Int).Mul(plus4, plus4)
	plus7 := new(big.Int).Mul(plus4, plus2)
	plus7.Mul(plus7, plus)

	minus2 := new(big.Int).Mul(minus, minus)
	minus4 := new(big.Int).Mul(minus2, minus2)
	minus8 := new(big.Int).Mul(minus4, minus4)
	minus7 := new(big.Int).Mul(minus4, minus2)
	minus7.Mul(minus7, minus)

	u = new(big.Int).Sub(plus8, minus8)
	u.Abs(u)

	du = new(big.Int).Add(minus7, plus7)
	du.Abs(du)
	du.Mul(du, eight)
	return u, du
}

// NewtonSolveDy approximates the dy that restores Utility(x, y) after dx is
// added to x. rounds is not adaptive.
func NewtonSolveDy(x, y, dx *big.Int, rounds int) (*big.Int, error) {
	if anyNegative(x, y, dx) {
		return nil, dexerr.New(dexerr.KindArithmeticGuard, "negative operand")
	}
	if rounds < 0 {
		return nil, dexerr.New(dexerr.KindArithmeticGuard, "negative rounds")
	}

	u0, _ := Utility(x, y)
	xNew := new(big.Int).Add(x, dx)
	dy := big.NewInt(0)
	yNew := new(big.Int)
	step := new(big.Int)

	for i := 0; i < rounds; i++ {
		yNew.Sub(y, dy)
		yNew.Abs(yNew)
		u, du := Utility(xNew, yNew)
		if du.Sign() == 0 {
			return nil, dexerr.New(dexerr.KindArithmeticGuard, "zero derivative")
		}
		step.Sub(u, u0)
		step.Abs(step)
		step.Quo(step, du)
		dy.Add(dy, step)
	}
	return dy, nil
}

// SwapLimitExceeded reports whether amountIn is more than pct percent of
// reserveIn.
func SwapLimitExceeded(amountIn, reserveIn, pct *big.Int) bool {
	lhs := new(big.Int).Mul(amountIn, hundred)
	rhs := new(big.Int).Mul(reserveIn, pct)
	return lhs.Cmp(rhs) > 0
}

// Min returns the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func anyNegative(values ...*big.Int) bool {
	for _, v := range values {
		if v == nil || v.Cmp(zero) < 0 {
			return true
		}
	}
	return false
}

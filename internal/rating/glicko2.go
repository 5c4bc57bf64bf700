// internal/rating/glicko2.go
package rating

import (
	"math"
)

const (
	// GlickoScale is the multiplier used for converting between Elo and Glicko2's mu.
	GlickoScale = 173.7178
	// DefaultMu is the baseline rating (1500) in Glicko2 terms.
	DefaultMu = 1500.0
	// DefaultPhi is the baseline rating deviation (RD) in Glicko2 terms (350).
	DefaultPhi = 350.0
	// DefaultSigma is the starting volatility.
	DefaultSigma = 0.06
	// Tau is the constraint on volatility changes.
	Tau = 0.5
	// Epsilon is the tolerance used in iteration stopping conditions.
	Epsilon = 0.000001
)

// Glicko2Rating holds the transformed rating (Mu), rating deviation (Phi),
// and volatility (Sigma) for a single user in Glicko2 space.
type Glicko2Rating struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// NewGlicko2Rating creates a new Glicko2Rating from a standard Elo, rating deviation, and volatility.
//
// elo is the user's current rating in standard "1500-based" scale.
// rd is the user's rating deviation in the same scale (e.g., 350).
// sigma is the user's volatility (typically around 0.06).
func NewGlicko2Rating(elo, rd, sigma float64) Glicko2Rating {
	return Glicko2Rating{
		Mu:    (elo - DefaultMu) / GlickoScale,
		Phi:   rd / GlickoScale,
		Sigma: sigma,
	}
}

// ToElo converts a Glicko2Rating's Mu back to a standard 1500-based Elo scale.
func (r Glicko2Rating) ToElo() float64 {
	return r.Mu*GlickoScale + DefaultMu
}

// RD returns the rating deviation on the 1500-based scale.
func (r Glicko2Rating) RD() float64 {
	return r.Phi * GlickoScale
}

// outcome is one pairwise result: 1 for a win over opp, 0.5 for a tie, 0 for a loss.
type outcome struct {
	opp   Glicko2Rating
	score float64
}

// update runs one Glicko-2 rating period for r over all of its pairwise outcomes.
func update(r Glicko2Rating, outcomes []outcome) Glicko2Rating {
	if len(outcomes) == 0 {
		r.Phi = math.Sqrt(r.Phi*r.Phi + r.Sigma*r.Sigma)
		return r
	}

	var vInv, improvement float64
	for _, o := range outcomes {
		gVal := g(o.opp.Phi)
		eVal := E(r.Mu, o.opp.Mu, o.opp.Phi)
		vInv += gVal * gVal * eVal * (1 - eVal)
		improvement += gVal * (o.score - eVal)
	}
	v := 1.0 / vInv
	delta := v * improvement

	newSigma := volatility(r, v, delta)
	phiStar := math.Sqrt(r.Phi*r.Phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)

	return Glicko2Rating{
		Mu:    r.Mu + phiPrime*phiPrime*improvement,
		Phi:   phiPrime,
		Sigma: newSigma,
	}
}

// volatility solves for the new sigma with the Illinois variant of regula falsi.
func volatility(r Glicko2Rating, v, delta float64) float64 {
	a := math.Log(r.Sigma * r.Sigma)
	fx := func(x float64) float64 {
		return f(x, r.Phi, v, delta, a)
	}

	A := a
	var B float64
	if delta*delta > r.Phi*r.Phi+v {
		B = math.Log(delta*delta - r.Phi*r.Phi - v)
	} else {
		k := 1.0
		for fx(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fx(A), fx(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fx(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

// g is the G(phi) factor from Glicko2, applying the standard formula 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// E is the expected score formula in Glicko2 space, E(mu,mu2,phi2)=1/(1+exp[-g(phi2)*(mu-mu2)])
func E(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the Glicko2 volatility root-finding function used in the iterative volatility update.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}

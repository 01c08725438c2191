package returns

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// View represents a Black-Litterman view (an opinion about an asset's return).
type View struct {
	Type       string  // "absolute" or "relative"
	AssetID    string  // For absolute views
	AssetID1   string  // For relative views (outperformer)
	AssetID2   string  // For relative views (underperformer)
	Return     float64 // Expected return (absolute) or outperformance (relative)
	Confidence float64 // Confidence level (0.0 to 1.0)
}

// BlackLitterman blends market-equilibrium returns with views.
type BlackLitterman struct {
	log zerolog.Logger
}

// NewBlackLitterman creates a new Black-Litterman blender.
func NewBlackLitterman(log zerolog.Logger) *BlackLitterman {
	return &BlackLitterman{
		log: log.With().Str("component", "black_litterman").Logger(),
	}
}

// MarketEquilibrium calculates implied equilibrium returns from weights.
// Formula: Π = λ * Σ * w
// Where: λ = risk aversion, Σ = covariance matrix, w = market weights
func (bl *BlackLitterman) MarketEquilibrium(
	weights map[string]float64,
	covMatrix [][]float64,
	ids []string,
	riskAversion float64,
) (map[string]float64, error) {
	if len(weights) == 0 || len(covMatrix) == 0 {
		return nil, fmt.Errorf("weights and covariance matrix cannot be empty")
	}

	n := len(ids)
	if len(covMatrix) != n {
		return nil, fmt.Errorf("covariance matrix size %d does not match assets %d", len(covMatrix), n)
	}

	w := mat.NewVecDense(n, nil)
	for i, id := range ids {
		if weight, ok := weights[id]; ok {
			w.SetVec(i, weight)
		}
	}

	sigma := denseFrom(covMatrix)

	var sigmaW mat.VecDense
	sigmaW.MulVec(sigma, w)

	equilibrium := make(map[string]float64, n)
	for i, id := range ids {
		equilibrium[id] = riskAversion * sigmaW.AtVec(i)
	}

	return equilibrium, nil
}

// BlendViews blends views with market equilibrium using the BL formula:
//
//	E[R] = [(τΣ)^-1 + P'Ω^-1P]^-1 * [(τΣ)^-1Π + P'Ω^-1Q]
func (bl *BlackLitterman) BlendViews(
	equilibrium map[string]float64,
	views []View,
	covMatrix [][]float64,
	ids []string,
	tau float64,
) (map[string]float64, error) {
	if len(equilibrium) == 0 {
		return nil, fmt.Errorf("equilibrium returns cannot be empty")
	}

	n := len(ids)
	if len(covMatrix) != n {
		return nil, fmt.Errorf("covariance matrix size mismatch")
	}

	if len(views) == 0 {
		return equilibrium, nil
	}

	m := len(views)
	P := mat.NewDense(m, n, nil)
	Q := mat.NewVecDense(m, nil)
	omega := mat.NewDense(m, m, nil)

	for i, view := range views {
		Q.SetVec(i, view.Return)

		// Uncertainty is the inverse of confidence
		uncertainty := 1.0 - view.Confidence
		if uncertainty < 1e-6 {
			uncertainty = 1e-6
		}
		omega.Set(i, i, uncertainty)

		switch view.Type {
		case "absolute":
			for j, id := range ids {
				if id == view.AssetID {
					P.Set(i, j, 1.0)
					break
				}
			}
		case "relative":
			for j, id := range ids {
				if id == view.AssetID1 {
					P.Set(i, j, 1.0)
				} else if id == view.AssetID2 {
					P.Set(i, j, -1.0)
				}
			}
		}
	}

	sigma := denseFrom(covMatrix)

	pi := mat.NewVecDense(n, nil)
	for i, id := range ids {
		if ret, ok := equilibrium[id]; ok {
			pi.SetVec(i, ret)
		}
	}

	tauSigma := mat.NewDense(n, n, nil)
	tauSigma.Scale(tau, sigma)

	var tauSigmaInv mat.Dense
	if err := tauSigmaInv.Inverse(tauSigma); err != nil {
		return nil, fmt.Errorf("failed to invert τΣ: %w", err)
	}

	var omegaInv mat.Dense
	if err := omegaInv.Inverse(omega); err != nil {
		return nil, fmt.Errorf("failed to invert Ω: %w", err)
	}

	var PTrans mat.Dense
	PTrans.CloneFrom(P.T())
	var PTransOmegaInv mat.Dense
	PTransOmegaInv.Mul(&PTrans, &omegaInv)
	var PTransOmegaInvP mat.Dense
	PTransOmegaInvP.Mul(&PTransOmegaInv, P)

	var M mat.Dense
	M.Add(&tauSigmaInv, &PTransOmegaInvP)

	var MInv mat.Dense
	if err := MInv.Inverse(&M); err != nil {
		return nil, fmt.Errorf("failed to invert posterior precision: %w", err)
	}

	var tauSigmaInvPi mat.VecDense
	tauSigmaInvPi.MulVec(&tauSigmaInv, pi)

	var PTransOmegaInvQ mat.VecDense
	PTransOmegaInvQ.MulVec(&PTransOmegaInv, Q)

	var rhs mat.VecDense
	rhs.AddVec(&tauSigmaInvPi, &PTransOmegaInvQ)

	var blended mat.VecDense
	blended.MulVec(&MInv, &rhs)

	result := make(map[string]float64, n)
	for i, id := range ids {
		result[id] = blended.AtVec(i)
	}

	return result, nil
}

func denseFrom(m [][]float64) *mat.Dense {
	n := len(m)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, m[i][j])
		}
	}
	return d
}

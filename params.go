/*
Copyright © 2018 the Diagen authors.
This file is part of Diagen.

Diagen is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Diagen is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Diagen.  If not, see <http://www.gnu.org/licenses/>.
*/

package diagen

import (
	"fmt"
	"math"

	"github.com/ctessum/unit"

	"github.com/sedimentmodel/diagen/seawater"
)

// Molar masses [grams per mole]
const (
	mwCH2O  = 30.026 // organic carbon as carbohydrate
	mwNH3   = 17.031
	mwH3PO4 = 97.995
)

const secPerYear = 365.25 * 24 * 3600

// MoleDim is the dimension representing amount of substance.
var MoleDim = unit.NewDimension("mole")

var (
	kgPerMole     = unit.Dimensions{unit.MassDim: 1, MoleDim: -1}
	kgPerM2PerS   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2, unit.TimeDim: -1}
	molePerM2PerS = unit.Dimensions{MoleDim: 1, unit.LengthDim: -2, unit.TimeDim: -1}
)

// Stoich holds the organic-matter composition and deposition quantities
// derived from the bottom-water chemistry. It is computed once, before the
// time loop.
type Stoich struct {
	Density    float64 // bottom-water density [kg/m³]
	RC, RN, RP float64 // carbon-normalized C:N:P ratio
	MolarMass  float64 // organic-matter molar mass [g/mol C]
	CarbonFlux float64 // organic-carbon deposition [mol C/m²/yr]
}

// Stoichiometry derives the composition of depositing organic matter and
// the resulting carbon flux. The canonical 106:16:1 Redfield ratio is used
// unless a bottom-water phosphate concentration is supplied
// (BottomWaterPO4 >= 0, μmol/kg), in which case the phosphorus content
// follows the fit of Galbraith and Martiny (2015).
func Stoichiometry(cfg *ColumnConfig) (*Stoich, error) {
	s := &Stoich{
		Density: seawater.Density(cfg.Salinity, cfg.Temperature, cfg.Pressure/10),
		RC:      1,
		RN:      16. / 106.,
		RP:      1. / 106.,
	}
	if cfg.BottomWaterPO4 >= 0 {
		s.RP = (6.9*cfg.BottomWaterPO4 + 6.0) * 1.e-3
	}

	// Organic matter as CH₂O + rN·NH₃ + rP·H₃PO₄ per mole of carbon.
	m := unit.New(s.RC*mwCH2O*1.e-3, kgPerMole)
	m.Add(unit.Mul(unit.New(s.RN, unit.Dimless), unit.New(mwNH3*1.e-3, kgPerMole)))
	m.Add(unit.Mul(unit.New(s.RP, unit.Dimless), unit.New(mwH3PO4*1.e-3, kgPerMole)))
	if err := m.Check(kgPerMole); err != nil {
		return nil, fmt.Errorf("diagen.Stoichiometry: %v", err)
	}
	s.MolarMass = m.Value() * 1.e3

	massFlux := unit.New(cfg.POMFlux*1.e-3/secPerYear, kgPerM2PerS)
	cFlux := unit.Div(massFlux, m)
	if err := cFlux.Check(molePerM2PerS); err != nil {
		return nil, fmt.Errorf("diagen.Stoichiometry: %v", err)
	}
	s.CarbonFlux = cFlux.Value() * secPerYear
	return s, nil
}

// Concentration converts a bottom-water concentration from μmol/kg to
// mol/m³ using the derived seawater density.
func (s *Stoich) Concentration(umolPerKg float64) float64 {
	return umolPerKg * 1.e-6 * s.Density
}

// PorosityModel is the exponential compaction profile
// φ(z) = (φ0−φ∞)·exp(−βz) + φ∞.
type PorosityModel struct {
	Phi0   float64 // porosity at the sediment-water interface
	PhiInf float64 // porosity at infinite depth
	Beta   float64 // attenuation coefficient [1/m]
}

// Phi returns the porosity at depth z [m].
func (p PorosityModel) Phi(z float64) float64 {
	return (p.Phi0-p.PhiInf)*math.Exp(-p.Beta*z) + p.PhiInf
}

// PhiS returns the solid volume fraction at depth z.
func (p PorosityModel) PhiS(z float64) float64 {
	return 1 - p.Phi(z)
}

// Tort2 returns the tortuosity squared at depth z, from the porosity
// relation τ² = 1 − 2·ln(φ) (Boudreau 1996).
func (p PorosityModel) Tort2(z float64) float64 {
	return 1 - 2*math.Log(p.Phi(z))
}

// DPhi returns dφ/dz at depth z.
func (p PorosityModel) DPhi(z float64) float64 {
	return -p.Beta * (p.Phi0 - p.PhiInf) * math.Exp(-p.Beta*z)
}

// DPhiS returns dφS/dz at depth z.
func (p PorosityModel) DPhiS(z float64) float64 {
	return -p.DPhi(z)
}

// DTort2i returns d(τ⁻²)/dz at depth z.
func (p PorosityModel) DTort2i(z float64) float64 {
	phi := p.Phi(z)
	t2 := 1 - 2*math.Log(phi)
	return 2 * p.DPhi(z) / (phi * t2 * t2)
}

// Bioturbation returns the biological solid-mixing diffusivity [m²/yr] at
// depth z [m]. The surface value follows the organic-flux power fit of
// Archer et al. (2002) and shuts down as bottom-water oxygen vanishes; a
// Gaussian kernel with length scale lambda attenuates it with depth.
// carbonFlux is in mol C/m²/yr and o2w in mol/m³.
func Bioturbation(carbonFlux, o2w, z, lambda float64) float64 {
	d0 := 0.0232e-4 * math.Pow(carbonFlux*1.e2, 0.85)
	return d0 * o2w / (o2w + 0.02) * math.Exp(-(z/lambda)*(z/lambda))
}

// IrrigationRate returns the bio-irrigation exchange rate α [1/yr] at
// depth z [m], following the benthic flux relations of Archer et al.
// (2002): saturating in organic flux, enhanced near anoxia, and attenuated
// with depth by a Gaussian kernel with its own length scale.
func IrrigationRate(carbonFlux, o2w, z, lambda float64) float64 {
	f := carbonFlux * 1.e2
	a0 := 11.0*(math.Atan((5.0*f-400.0)/400.0)/math.Pi+0.5) - 0.9 +
		20.0*(o2w/(o2w+0.01))*math.Exp(-o2w/0.01)*f/(f+30.0)
	return a0 * math.Exp(-(z/lambda)*(z/lambda))
}

// DeepBurialVelocity returns the burial velocity w∞ [m/yr] below the zone
// of compaction for a column receiving massFlux [g/m²/yr] of solids with
// grain density rho [kg/m³].
func DeepBurialVelocity(massFlux, rho, phiSInf float64) float64 {
	return massFlux / (rho * 1.e3 * phiSInf)
}

// DegradationRate converts a characteristic degradation length [m] into a
// first-order rate constant [1/yr] using the deep burial velocity.
func DegradationRate(wInf, lambda float64) float64 {
	return wInf / lambda
}

// AdvectionWeight returns the Fiadeiro-Veronis differencing weight
// σ(Peh) = 1/tanh(Peh) − 1/Peh for half-cell Peclet number Peh (Boudreau
// 1996 fit to the exact exponential scheme). σ→0 recovers the central
// scheme in diffusion-dominated cells and σ→±1 the upwind scheme in
// advection-dominated ones.
func AdvectionWeight(peh float64) float64 {
	if math.Abs(peh) < 1.e-4 {
		// Series about zero; the closed form loses all precision to
		// cancellation here.
		return peh/3 - peh*peh*peh/45
	}
	return 1/math.Tanh(peh) - 1/peh
}

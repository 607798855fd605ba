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
	"math"
	"testing"
)

func TestStoichiometry(t *testing.T) {
	const testTolerance = 1.e-8

	cfg, _ := ColumnTestData()
	st, err := Stoichiometry(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if st.Density < 1020 || st.Density > 1060 {
		t.Errorf("abyssal seawater density is %g kg/m³", st.Density)
	}
	if st.RC != 1 {
		t.Errorf("carbon ratio is %g but should be 1", st.RC)
	}
	if different(st.RN, 16./106., testTolerance) {
		t.Errorf("nitrogen ratio is %g but should be %g", st.RN, 16./106.)
	}
	// With a measured phosphate concentration the phosphorus content
	// follows the Galbraith and Martiny (2015) fit.
	wantRP := (6.9*cfg.BottomWaterPO4 + 6.0) * 1.e-3
	if different(st.RP, wantRP, testTolerance) {
		t.Errorf("phosphorus ratio is %g but should be %g", st.RP, wantRP)
	}

	wantMass := 30.026 + st.RN*17.031 + st.RP*97.995
	if different(st.MolarMass, wantMass, testTolerance) {
		t.Errorf("molar mass is %g but should be %g", st.MolarMass, wantMass)
	}
	if different(st.CarbonFlux, cfg.POMFlux/wantMass, testTolerance) {
		t.Errorf("carbon flux is %g but should be %g", st.CarbonFlux, cfg.POMFlux/wantMass)
	}

	// Concentrations convert with the derived density.
	if different(st.Concentration(1000), st.Density*1.e-3, testTolerance) {
		t.Errorf("1000 μmol/kg converts to %g mol/m³ but should be %g",
			st.Concentration(1000), st.Density*1.e-3)
	}

	// Without a phosphate measurement the canonical Redfield ratio holds.
	cfg.BottomWaterPO4 = -1
	st, err = Stoichiometry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if different(st.RP, 1./106., testTolerance) {
		t.Errorf("canonical phosphorus ratio is %g but should be %g", st.RP, 1./106.)
	}
}

func TestPorosityModel(t *testing.T) {
	const testTolerance = 1.e-8

	p := PorosityModel{Phi0: 0.85, PhiInf: 0.74, Beta: 33}

	if p.Phi(0) != p.Phi0 {
		t.Errorf("surface porosity is %g but should be %g", p.Phi(0), p.Phi0)
	}
	if different(p.Phi(10), p.PhiInf, testTolerance) {
		t.Errorf("deep porosity is %g but should approach %g", p.Phi(10), p.PhiInf)
	}

	const h = 1.e-6
	for _, z := range []float64{0, 0.005, 0.02, 0.1} {
		if absDifferent(p.Phi(z)+p.PhiS(z), 1, 1.e-12) {
			t.Errorf("z=%g: porosity and solid fraction sum to %g", z, p.Phi(z)+p.PhiS(z))
		}
		if different(p.Tort2(z), 1-2*math.Log(p.Phi(z)), testTolerance) {
			t.Errorf("z=%g: tortuosity² is %g but should be %g",
				z, p.Tort2(z), 1-2*math.Log(p.Phi(z)))
		}
		if p.Tort2(z) <= 1 {
			t.Errorf("z=%g: tortuosity² is %g but should exceed 1", z, p.Tort2(z))
		}

		// Analytical derivatives against centered differences.
		dphi := (p.Phi(z+h) - p.Phi(z-h)) / (2 * h)
		if different(p.DPhi(z), dphi, 1.e-4) {
			t.Errorf("z=%g: dφ/dz is %g but differencing gives %g", z, p.DPhi(z), dphi)
		}
		if p.DPhiS(z) != -p.DPhi(z) {
			t.Errorf("z=%g: dφS/dz is %g but should be %g", z, p.DPhiS(z), -p.DPhi(z))
		}
		dti := (1/p.Tort2(z+h) - 1/p.Tort2(z-h)) / (2 * h)
		if different(p.DTort2i(z), dti, 1.e-4) {
			t.Errorf("z=%g: d(τ⁻²)/dz is %g but differencing gives %g", z, p.DTort2i(z), dti)
		}
	}
}

func TestBioturbation(t *testing.T) {
	const testTolerance = 1.e-8
	const (
		carbonFlux = 1.05 // mol C/m²/yr
		o2w        = 0.165
		lambda     = 0.08
	)

	d0 := Bioturbation(carbonFlux, o2w, 0, lambda)
	if d0 <= 0 {
		t.Fatalf("surface bioturbation is %g but should be positive", d0)
	}
	for _, z := range []float64{0.02, 0.08, 0.2} {
		want := d0 * math.Exp(-(z/lambda)*(z/lambda))
		if different(Bioturbation(carbonFlux, o2w, z, lambda), want, testTolerance) {
			t.Errorf("z=%g: bioturbation is %g but the Gaussian kernel gives %g",
				z, Bioturbation(carbonFlux, o2w, z, lambda), want)
		}
	}
	if v := Bioturbation(carbonFlux, 0, 0, lambda); v != 0 {
		t.Errorf("bioturbation without oxygen is %g but should be zero", v)
	}
	if Bioturbation(2*carbonFlux, o2w, 0, lambda) <= d0 {
		t.Error("bioturbation should increase with the organic flux")
	}
}

func TestIrrigationRate(t *testing.T) {
	const testTolerance = 1.e-8
	const (
		carbonFlux = 1.05
		o2w        = 0.165
		lambda     = 0.05
	)

	a0 := IrrigationRate(carbonFlux, o2w, 0, lambda)
	if a0 <= 0 {
		t.Fatalf("surface irrigation rate is %g but should be positive", a0)
	}
	for _, z := range []float64{0.01, 0.05, 0.15} {
		want := a0 * math.Exp(-(z/lambda)*(z/lambda))
		if different(IrrigationRate(carbonFlux, o2w, z, lambda), want, testTolerance) {
			t.Errorf("z=%g: irrigation rate is %g but the Gaussian kernel gives %g",
				z, IrrigationRate(carbonFlux, o2w, z, lambda), want)
		}
	}
	// Burrow flushing intensifies near anoxia.
	if IrrigationRate(carbonFlux, 0.005, 0, lambda) <= a0 {
		t.Error("irrigation should intensify at low oxygen")
	}
}

func TestBurialVelocity(t *testing.T) {
	const testTolerance = 1.e-8

	w := DeepBurialVelocity(68.95, 2650, 0.26)
	if different(w, 68.95/(2650*1.e3*0.26), testTolerance) {
		t.Errorf("deep burial velocity is %g but should be %g", w, 68.95/(2650*1.e3*0.26))
	}
	if different(DegradationRate(w, 0.0025), w/0.0025, testTolerance) {
		t.Errorf("degradation rate is %g but should be %g", DegradationRate(w, 0.0025), w/0.0025)
	}
}

func TestAdvectionWeight(t *testing.T) {
	if AdvectionWeight(0) != 0 {
		t.Errorf("σ(0) is %g but should be 0", AdvectionWeight(0))
	}
	if absDifferent(AdvectionWeight(-2), -AdvectionWeight(2), 1.e-12) {
		t.Errorf("σ is not odd: σ(-2)=%g, σ(2)=%g", AdvectionWeight(-2), AdvectionWeight(2))
	}
	if different(AdvectionWeight(50), 1-1./50., 1.e-10) {
		t.Errorf("σ(50) is %g but should approach the upwind limit %g",
			AdvectionWeight(50), 1-1./50.)
	}
	// The series branch agrees with the closed form where they meet.
	if different(AdvectionWeight(1.e-3), 1.e-3/3-1.e-9/45, 1.e-6) {
		t.Errorf("σ(1e-3) is %g but the series gives %g",
			AdvectionWeight(1.e-3), 1.e-3/3-1.e-9/45)
	}
	if different(AdvectionWeight(0.99e-4), 0.99e-4/3, 1.e-6) {
		t.Errorf("σ(0.99e-4) is %g but should be near %g", AdvectionWeight(0.99e-4), 0.99e-4/3)
	}
	if different(AdvectionWeight(1.01e-4), 1.01e-4/3, 1.e-6) {
		t.Errorf("σ(1.01e-4) is %g but should be near %g", AdvectionWeight(1.01e-4), 1.01e-4/3)
	}
	for _, peh := range []float64{1.e-5, 0.01, 0.5, 2, 10} {
		s := AdvectionWeight(peh)
		if s <= 0 || s >= 1 {
			t.Errorf("σ(%g) = %g is outside (0, 1)", peh, s)
		}
	}
}

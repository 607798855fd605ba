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

// Package seawater calculates physical properties of seawater from the
// International Equation of State of Seawater 1980 (UNESCO 1983;
// Millero and Poisson 1981).
package seawater

import "math"

// Density returns the in situ density of seawater [kg/m³] given practical
// salinity, temperature [°C] and applied pressure [bar] (0 at the surface).
func Density(salinity, temperature, pressure float64) float64 {
	rho0 := densityAtmos(salinity, temperature)
	if pressure == 0 {
		return rho0
	}
	k := bulkModulus(salinity, temperature, pressure)
	return rho0 / (1 - pressure/k)
}

// densityAtmos is the one-atmosphere density ρ(S,T,0) [kg/m³].
func densityAtmos(s, t float64) float64 {
	// Density of pure water (Bigg 1967).
	rhoW := 999.842594 + t*(6.793952e-2+t*(-9.095290e-3+
		t*(1.001685e-4+t*(-1.120083e-6+t*6.536332e-9))))

	a := 8.24493e-1 + t*(-4.0899e-3+t*(7.6438e-5+
		t*(-8.2467e-7+t*5.3875e-9)))
	b := -5.72466e-3 + t*(1.0227e-4+t*-1.6546e-6)
	const c = 4.8314e-4

	sr := math.Sqrt(s)
	return rhoW + s*(a+b*sr+c*s)
}

// bulkModulus is the secant bulk modulus K(S,T,p) [bar].
func bulkModulus(s, t, p float64) float64 {
	kw := 19652.21 + t*(148.4206+t*(-2.327105+
		t*(1.360477e-2+t*-5.155288e-5)))
	aCoef := 54.6746 + t*(-0.603459+t*(1.09987e-2+t*-6.1670e-5))
	bCoef := 7.944e-2 + t*(1.6483e-2+t*-5.3009e-4)

	sr := math.Sqrt(s)
	k0 := kw + s*(aCoef+bCoef*sr)

	aw := 3.239908 + t*(1.43713e-3+t*(1.16092e-4+t*-5.77905e-7))
	aP := aw + s*(2.2838e-3+t*(-1.0981e-5+t*-1.6078e-6)+sr*1.91075e-4)

	bw := 8.50935e-5 + t*(-6.12293e-6+t*5.2787e-8)
	bP := bw + s*(-9.9348e-7+t*(2.0816e-8+t*9.1697e-10))

	return k0 + p*(aP+bP*p)
}

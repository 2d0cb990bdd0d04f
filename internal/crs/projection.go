package crs

import "math"

// projection maps between geographic coordinates (lon/lat degrees) and
// projected coordinates in meters, false origin included. Unit conversion to
// the CRS native unit happens in the CRS wrapper. Implementations return
// NaN/Inf for inputs outside the projection domain; callers classify those as
// out-of-domain.
type projection interface {
	forward(lon, lat float64) (x, y float64)
	inverse(x, y float64) (lon, lat float64)
}

const deg2rad = math.Pi / 180.0

// webMercator is the spherical pseudo-Mercator used by EPSG:3857.
type webMercator struct{}

func (webMercator) forward(lon, lat float64) (float64, float64) {
	// The poles have no image on the mercator plane.
	if math.Abs(lat) >= 90 {
		return math.NaN(), math.NaN()
	}
	x := sphereR * lon * deg2rad
	y := sphereR * math.Log(math.Tan(math.Pi/4+lat*deg2rad/2))
	return x, y
}

func (webMercator) inverse(x, y float64) (float64, float64) {
	lon := x / sphereR / deg2rad
	lat := (2*math.Atan(math.Exp(y/sphereR)) - math.Pi/2) / deg2rad
	return lon, lat
}

// transverseMercator implements the ellipsoidal Transverse Mercator series
// (Snyder, Map Projections: A Working Manual, eq. 8-9..8-17 and 3-21).
type transverseMercator struct {
	a, e2, ep2     float64
	k0             float64
	lon0           float64 // radians
	fe, fn         float64
	m0             float64 // meridional arc at latitude of origin (0 here)
	mCoefs         [4]float64
	e1             float64
	footpointCoefs [4]float64
}

func newTransverseMercator(a, f, lon0Deg, k0, fe, fn float64) *transverseMercator {
	e2 := f * (2 - f)
	tm := &transverseMercator{
		a:    a,
		e2:   e2,
		ep2:  e2 / (1 - e2),
		k0:   k0,
		lon0: lon0Deg * deg2rad,
		fe:   fe,
		fn:   fn,
	}

	e4 := e2 * e2
	e6 := e4 * e2
	tm.mCoefs = [4]float64{
		1 - e2/4 - 3*e4/64 - 5*e6/256,
		3*e2/8 + 3*e4/32 + 45*e6/1024,
		15*e4/256 + 45*e6/1024,
		35 * e6 / 3072,
	}

	sqrt1e2 := math.Sqrt(1 - e2)
	e1 := (1 - sqrt1e2) / (1 + sqrt1e2)
	tm.e1 = e1
	tm.footpointCoefs = [4]float64{
		3*e1/2 - 27*e1*e1*e1/32,
		21*e1*e1/16 - 55*e1*e1*e1*e1/32,
		151 * e1 * e1 * e1 / 96,
		1097 * e1 * e1 * e1 * e1 / 512,
	}

	return tm
}

// meridionalArc returns the distance along the meridian from the equator.
func (tm *transverseMercator) meridionalArc(phi float64) float64 {
	c := tm.mCoefs
	return tm.a * (c[0]*phi - c[1]*math.Sin(2*phi) + c[2]*math.Sin(4*phi) - c[3]*math.Sin(6*phi))
}

func (tm *transverseMercator) forward(lon, lat float64) (float64, float64) {
	phi := lat * deg2rad
	lam := lon * deg2rad

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := tm.a / math.Sqrt(1-tm.e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := tm.ep2 * cosPhi * cosPhi
	a1 := (lam - tm.lon0) * cosPhi
	m := tm.meridionalArc(phi)

	a2 := a1 * a1
	a3 := a2 * a1
	a4 := a3 * a1
	a5 := a4 * a1
	a6 := a5 * a1

	x := tm.k0*n*(a1+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*tm.ep2)*a5/120) + tm.fe
	y := tm.k0*(m-tm.m0+n*tanPhi*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*tm.ep2)*a6/720)) + tm.fn

	return x, y
}

func (tm *transverseMercator) inverse(x, y float64) (float64, float64) {
	m := tm.m0 + (y-tm.fn)/tm.k0
	mu := m / (tm.a * tm.mCoefs[0])

	f := tm.footpointCoefs
	phi1 := mu + f[0]*math.Sin(2*mu) + f[1]*math.Sin(4*mu) + f[2]*math.Sin(6*mu) + f[3]*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := tm.ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	oneMinus := 1 - tm.e2*sinPhi1*sinPhi1
	n1 := tm.a / math.Sqrt(oneMinus)
	r1 := tm.a * (1 - tm.e2) / (oneMinus * math.Sqrt(oneMinus))
	d := (x - tm.fe) / (n1 * tm.k0)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*tm.ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*tm.ep2-3*c1*c1)*d6/720)

	lam := tm.lon0 + (d-
		(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*tm.ep2+24*t1*t1)*d5/120)/cosPhi1

	return lam / deg2rad, phi / deg2rad
}

// lcc2sp implements the Lambert Conformal Conic two-standard-parallel
// projection (Snyder eq. 15-1..15-11).
type lcc2sp struct {
	a, e   float64
	n, f   float64
	rho0   float64
	lon0   float64 // radians
	fe, fn float64
}

func newLCC2SP(a, flat, lat0Deg, lat1Deg, lat2Deg, lon0Deg, fe, fn float64) *lcc2sp {
	e2 := flat * (2 - flat)
	e := math.Sqrt(e2)

	lat0 := lat0Deg * deg2rad
	lat1 := lat1Deg * deg2rad
	lat2 := lat2Deg * deg2rad

	m1 := lccM(e2, lat1)
	m2 := lccM(e2, lat2)
	t0 := lccT(e, lat0)
	t1 := lccT(e, lat1)
	t2 := lccT(e, lat2)

	n := (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	f := m1 / (n * math.Pow(t1, n))

	return &lcc2sp{
		a:    a,
		e:    e,
		n:    n,
		f:    f,
		rho0: a * f * math.Pow(t0, n),
		lon0: lon0Deg * deg2rad,
		fe:   fe,
		fn:   fn,
	}
}

func lccM(e2, phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e2*s*s)
}

func lccT(e, phi float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
}

func (p *lcc2sp) forward(lon, lat float64) (float64, float64) {
	phi := lat * deg2rad
	lam := lon * deg2rad

	rho := p.a * p.f * math.Pow(lccT(p.e, phi), p.n)
	theta := p.n * (lam - p.lon0)

	x := p.fe + rho*math.Sin(theta)
	y := p.fn + p.rho0 - rho*math.Cos(theta)
	return x, y
}

func (p *lcc2sp) inverse(x, y float64) (float64, float64) {
	dx := x - p.fe
	dy := p.rho0 - (y - p.fn)

	rho := math.Sqrt(dx*dx + dy*dy)
	if p.n < 0 {
		rho = -rho
		dx = -dx
		dy = -dy
	}

	t := math.Pow(rho/(p.a*p.f), 1/p.n)
	theta := math.Atan2(dx, dy)
	lam := theta/p.n + p.lon0

	// Iterate the conformal latitude relation to convergence.
	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 15; i++ {
		s := math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-p.e*s)/(1+p.e*s), p.e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}

	return lam / deg2rad, phi / deg2rad
}

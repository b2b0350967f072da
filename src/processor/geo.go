package processor

import "math"

// EarthRadiusKm 地球平均半径
const EarthRadiusKm = 6371.0

// NullFloat 可为空的数值，Valid 为 false 表示缺失
type NullFloat struct {
	Value float64
	Valid bool
}

// Coordinates 机场坐标（角度）
type Coordinates struct {
	Lat NullFloat
	Lon NullFloat
}

// Haversine 计算两点间大圆距离(km)。输入含 NaN 时结果为 NaN
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Pow(math.Sin(dPhi/2), 2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceKm 任一坐标缺失或结果非有限值时返回 false
func DistanceKm(orig, dest Coordinates) (float64, bool) {
	if !orig.Lat.Valid || !orig.Lon.Valid || !dest.Lat.Valid || !dest.Lon.Valid {
		return 0, false
	}
	d := Haversine(orig.Lat.Value, orig.Lon.Value, dest.Lat.Value, dest.Lon.Value)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}

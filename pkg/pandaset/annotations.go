package pandaset

import (
	"path/filepath"
	"sort"
	"strconv"
)

// Cuboid is one exported cuboid record. Positions are in world coordinates;
// Yaw is measured about z from the y axis.
type Cuboid struct {
	UUID       string  `json:"uuid"`
	Label      string  `json:"label"`
	Yaw        float64 `json:"yaw"`
	PositionX  float64 `json:"position.x"`
	PositionY  float64 `json:"position.y"`
	PositionZ  float64 `json:"position.z"`
	DimensionX float64 `json:"dimensions.x"`
	DimensionY float64 `json:"dimensions.y"`
	DimensionZ float64 `json:"dimensions.z"`

	ObjectMotion       *string `json:"attributes.object_motion"`
	RiderStatus        *string `json:"attributes.rider_status"`
	PedestrianBehavior *string `json:"attributes.pedestrian_behavior"`
	PedestrianAge      *string `json:"attributes.pedestrian_age"`
}

// Cuboids reads the cuboids of frame i.
func (s *Sequence) Cuboids(i int) ([]Cuboid, error) {
	var cs []Cuboid
	err := readJSON(filepath.Join(s.Dir, "annotations", "cuboids", FrameName(i)+".json"), &cs)
	return cs, err
}

// Semseg reads the per-point class ids of frame i. Entry k is the class of
// point k of the lidar frame.
func (s *Sequence) Semseg(i int) ([]int, error) {
	var classes []int
	err := readJSON(filepath.Join(s.Dir, "annotations", "semseg", FrameName(i)+".json"), &classes)
	return classes, err
}

// SemsegClasses maps class ids to class names.
func (s *Sequence) SemsegClasses() (map[int]string, error) {
	var raw map[string]string
	if err := readJSON(filepath.Join(s.Dir, "annotations", "semseg", "classes.json"), &raw); err != nil {
		return nil, err
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// GroupByClass returns the point indices of every class, in point order, and
// the class ids in order of first appearance.
func GroupByClass(classes []int) (order []int, points map[int][]int) {
	points = map[int][]int{}
	for i, c := range classes {
		if _, ok := points[c]; !ok {
			order = append(order, c)
		}
		points[c] = append(points[c], i)
	}
	return order, points
}

// Labels returns the distinct cuboid labels, sorted.
func Labels(cuboids []Cuboid) []string {
	set := map[string]struct{}{}
	for _, c := range cuboids {
		set[c.Label] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

package domain

import "sort"

// DetectedObject is one labelled region returned by the detection model.
type DetectedObject struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// SceneContext is a coarse description of everything found in the picture.
type SceneContext struct {
	ObjectCount   int      `json:"object_count"`
	UniqueObjects []string `json:"unique_objects"`
}

// DetectionResult is the object-detection collaborator's answer.
type DetectionResult struct {
	Objects      []DetectedObject `json:"objects"`
	MainSubject  string           `json:"main_subject"`
	SceneContext SceneContext     `json:"scene_context"`
}

// NewDetectionResult derives the main subject and scene context from raw objects.
func NewDetectionResult(objects []DetectedObject) DetectionResult {
	return DetectionResult{
		Objects:      objects,
		MainSubject:  MainSubject(objects),
		SceneContext: DescribeScene(objects),
	}
}

// MainSubject returns the class of the most confident detection.
func MainSubject(objects []DetectedObject) string {
	var (
		best  string
		score = -1.0
	)
	for _, obj := range objects {
		if obj.Confidence > score {
			best = obj.Class
			score = obj.Confidence
		}
	}
	return best
}

// DescribeScene counts detections and lists their distinct classes in sorted order.
func DescribeScene(objects []DetectedObject) SceneContext {
	seen := make(map[string]struct{}, len(objects))
	unique := make([]string, 0, len(objects))
	for _, obj := range objects {
		if _, ok := seen[obj.Class]; ok {
			continue
		}
		seen[obj.Class] = struct{}{}
		unique = append(unique, obj.Class)
	}
	sort.Strings(unique)
	return SceneContext{ObjectCount: len(objects), UniqueObjects: unique}
}

// VisualMatch is one market comparable found by visual search.
type VisualMatch struct {
	Title          string   `json:"title"`
	Link           string   `json:"link,omitempty"`
	Source         string   `json:"source,omitempty"`
	Price          string   `json:"price,omitempty"`
	Category       string   `json:"category,omitempty"`
	Specifications []string `json:"specifications,omitempty"`
	Features       []string `json:"features,omitempty"`
}

// KnowledgeGraph is the entity card visual search may attach to its answer.
type KnowledgeGraph struct {
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// VisualSearchResult is the visual-search collaborator's answer.
type VisualSearchResult struct {
	VisualMatches  []VisualMatch  `json:"visual_matches"`
	KnowledgeGraph KnowledgeGraph `json:"knowledge_graph"`
}

// VisualQuery identifies the picture to search for.
type VisualQuery struct {
	ImageURL string
	Image    []byte
}

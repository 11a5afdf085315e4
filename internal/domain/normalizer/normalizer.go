package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bytedance/sonic"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
)

// Result is the full outcome of one normalization.
type Result struct {
	Payload payload.CodePayload
	Failure *Failure
	Repairs []string
}

// clone copies the failure and repair list so callers cannot reach
// cached state.
func (r Result) clone() Result {
	if r.Failure != nil {
		f := *r.Failure
		r.Failure = &f
	}
	if r.Repairs != nil {
		r.Repairs = append([]string(nil), r.Repairs...)
	}
	return r
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Normalize converts raw model text into a payload or a *Failure. It is
// pure: the same input always yields the same output.
func Normalize(raw string) (payload.CodePayload, error) {
	res := Run(raw)
	return res.Payload, res.Err()
}

// Run is Normalize with the applied repair steps reported.
func Run(raw string) Result {
	text := Strip(raw)

	spans := Candidates(text)
	if len(spans) == 0 {
		reason := "no '{' in response"
		if strings.ContainsRune(text, '{') {
			reason = "no closing '}' after first '{'"
		}
		return Result{Failure: fail(KindNoJSONFound, StageExtraction, reason, text, nil)}
	}

	obj, span, repairs, err := decodeFirst(spans)
	if obj == nil {
		return Result{
			Failure: fail(KindMalformedJSON, StageStructural, "no candidate parsed as an object", spans[0], err),
			Repairs: repairs,
		}
	}

	p, failure := validateFields(obj, span)
	if failure != nil {
		return Result{Failure: failure, Repairs: repairs}
	}

	if failure := checkPlaceholders(p); failure != nil {
		return Result{Failure: failure, Repairs: repairs}
	}

	return Result{Payload: p, Repairs: repairs}
}

// decodeFirst returns the first candidate that decodes to an object,
// preferring one that carries html or css keys.
func decodeFirst(spans []string) (map[string]interface{}, string, []string, error) {
	var (
		fallbackObj     map[string]interface{}
		fallbackSpan    string
		fallbackRepairs []string
		lastErr         error
	)

	for _, span := range spans {
		obj, repairs, err := decodeObject(span)
		if err != nil {
			lastErr = err
			continue
		}
		if _, ok := obj["html"]; ok {
			return obj, span, repairs, nil
		}
		if _, ok := obj["css"]; ok {
			return obj, span, repairs, nil
		}
		if fallbackObj == nil {
			fallbackObj, fallbackSpan, fallbackRepairs = obj, span, repairs
		}
	}

	return fallbackObj, fallbackSpan, fallbackRepairs, lastErr
}

// decodeObject tries the span as strict JSON first so valid input is never
// touched by repair.
func decodeObject(span string) (map[string]interface{}, []string, error) {
	if obj, err := parseObject(span); err == nil {
		return obj, nil, nil
	}

	repaired, repairs := Repair(span)
	obj, err := parseObject(repaired)
	if err != nil {
		return nil, repairs, err
	}
	return obj, repairs, nil
}

func parseObject(s string) (map[string]interface{}, error) {
	var v interface{}
	if err := sonic.ConfigStd.UnmarshalFromString(s, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, ErrMalformedJSON
	}
	return obj, nil
}

// Normalizer wraps Run with an LRU result cache, metrics and logging.
type Normalizer struct {
	cache   *lru.Cache[string, Result]
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// New creates a normalizer caching up to size results. size <= 0 disables
// the cache.
func New(size int, logger *zap.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Normalizer{logger: logger}
	if size > 0 {
		cache, err := lru.New[string, Result](size)
		if err != nil {
			return nil, err
		}
		n.cache = cache
	}
	return n, nil
}

// WithMetrics attaches a metrics collector.
func (n *Normalizer) WithMetrics(m *monitoring.Metrics) *Normalizer {
	n.metrics = m
	return n
}

// Normalize runs the pipeline, serving repeated input from the cache.
func (n *Normalizer) Normalize(raw string) Result {
	key := cacheKey(raw)

	if n.cache != nil {
		if res, ok := n.cache.Get(key); ok {
			n.recordCache(true)
			return res.clone()
		}
		n.recordCache(false)
	}

	res := Run(raw)

	if n.cache != nil {
		n.cache.Add(key, res.clone())
	}
	n.observe(res, len(raw))
	return res
}

func (n *Normalizer) observe(res Result, size int) {
	if res.Failure != nil {
		n.logger.Debug("Normalization failed",
			zap.String("kind", string(res.Failure.Kind)),
			zap.String("stage", string(res.Failure.Stage)),
			zap.String("reason", res.Failure.Reason),
			zap.String("snippet", res.Failure.Snippet),
			zap.Int("raw_bytes", size),
		)
	} else if len(res.Repairs) > 0 {
		n.logger.Debug("Normalized with repairs", zap.Strings("repairs", res.Repairs))
	}

	if n.metrics == nil {
		return
	}
	if res.Failure != nil {
		n.metrics.RecordNormalization(string(res.Failure.Kind), string(res.Failure.Stage))
	} else {
		n.metrics.RecordNormalization("ok", "")
	}
	n.metrics.RecordRepairSteps(res.Repairs)
}

func (n *Normalizer) recordCache(hit bool) {
	if n.metrics != nil {
		n.metrics.RecordCacheLookup("normalizer", hit)
	}
}

func cacheKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

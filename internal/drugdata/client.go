package drugdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/metrics"
	"github.com/medadhere/backend/pkg/circuitbreaker"
	"github.com/medadhere/backend/pkg/logger"
	"github.com/medadhere/backend/pkg/retry"
	"github.com/medadhere/backend/pkg/utils"
)

// Cache stores external lookup results. A nil Cache disables caching.
type Cache interface {
	GetDrugSearch(ctx context.Context, key string, dest interface{}) (bool, error)
	SetDrugSearch(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client queries RxNorm and OpenFDA for medication data. Both are public
// APIs with no authentication.
type Client struct {
	fdaBaseURL  string
	rxnormURL   string
	maxResults  int
	httpClient  *http.Client
	cache       Cache
	cacheTTL    time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// DrugRecord is the normalized shape of an external lookup result.
type DrugRecord struct {
	Name         string  `json:"name"`
	GenericName  string  `json:"generic_name"`
	Dosage       string  `json:"dosage"`
	Shape        string  `json:"shape"`
	Color        string  `json:"color"`
	NDCNumber    string  `json:"ndc_number,omitempty"`
	RxCUI        string  `json:"rxcui,omitempty"`
	Manufacturer string  `json:"manufacturer"`
	Source       string  `json:"source"`
	Description  string  `json:"description"`
	Relevance    float64 `json:"relevance"`
}

func NewClient(fdaBaseURL, rxnormURL string, timeoutSec, maxResults int, cache Cache, cacheTTL time.Duration) *Client {
	cb := circuitbreaker.NewCircuitBreaker("drugdata", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	return &Client{
		fdaBaseURL: fdaBaseURL,
		rxnormURL:  rxnormURL,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		cache:       cache,
		cacheTTL:    cacheTTL,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// SearchByName looks a medication up by name in RxNorm and OpenFDA,
// deduplicates and ranks the merged results by relevance to the query.
func (c *Client) SearchByName(ctx context.Context, name string) ([]DrugRecord, error) {
	cacheKey := utils.HashString("drug:name:" + strings.ToLower(name))

	if c.cache != nil {
		var cached []DrugRecord
		hit, err := c.cache.GetDrugSearch(ctx, cacheKey, &cached)
		if err != nil {
			logger.Warn("Drug cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("drug_search").Inc()
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues("drug_search").Inc()
	}

	var results []DrugRecord

	rxnormResults, err := c.searchRxNorm(ctx, name)
	if err != nil {
		logger.Warn("RxNorm search failed", zap.Error(err))
	} else {
		results = append(results, rxnormResults...)
	}

	fdaResults, err := c.searchFDA(ctx, name)
	if err != nil {
		logger.Warn("FDA search failed", zap.Error(err))
	} else {
		results = append(results, fdaResults...)
	}

	results = dedupeAndRank(results, name)
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}

	if c.cache != nil && len(results) > 0 {
		if err := c.cache.SetDrugSearch(ctx, cacheKey, results, c.cacheTTL); err != nil {
			logger.Warn("Drug cache write failed", zap.Error(err))
		}
	}

	logger.Info("Drug lookup completed",
		zap.String("query", name),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// SearchByImprint searches the FDA NDC directory for a pill imprint code.
func (c *Client) SearchByImprint(ctx context.Context, imprint string) ([]DrugRecord, error) {
	clean := strings.ToUpper(strings.TrimSpace(imprint))

	params := url.Values{}
	params.Set("search", fmt.Sprintf(`openfda.brand_name:"%s" OR openfda.generic_name:"%s"`, clean, clean))
	params.Set("limit", fmt.Sprintf("%d", c.maxResults))

	var payload fdaNDCResponse
	err := c.getJSON(ctx, c.fdaBaseURL+"/ndc.json?"+params.Encode(), &payload)
	if err != nil {
		return nil, fmt.Errorf("imprint search: %w", err)
	}

	return formatFDAResults(&payload), nil
}

type rxnormApproximateResponse struct {
	ApproximateGroup struct {
		Candidate []struct {
			RxCUI string `json:"rxcui"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

type rxnormPropertiesResponse struct {
	Properties struct {
		Name  string `json:"name"`
		RxCUI string `json:"rxcui"`
	} `json:"properties"`
}

func (c *Client) searchRxNorm(ctx context.Context, name string) ([]DrugRecord, error) {
	params := url.Values{}
	params.Set("term", name)
	params.Set("maxEntries", fmt.Sprintf("%d", c.maxResults))

	var approx rxnormApproximateResponse
	err := c.getJSON(ctx, c.rxnormURL+"/approximateTerm.json?"+params.Encode(), &approx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var results []DrugRecord
	for _, candidate := range approx.ApproximateGroup.Candidate {
		if candidate.RxCUI == "" || seen[candidate.RxCUI] {
			continue
		}
		seen[candidate.RxCUI] = true

		var props rxnormPropertiesResponse
		err := c.getJSON(ctx, fmt.Sprintf("%s/rxcui/%s/properties.json", c.rxnormURL, candidate.RxCUI), &props)
		if err != nil {
			logger.Debug("RxNorm properties lookup failed",
				zap.String("rxcui", candidate.RxCUI),
				zap.Error(err),
			)
			continue
		}
		if props.Properties.Name == "" {
			continue
		}

		results = append(results, DrugRecord{
			Name:         props.Properties.Name,
			GenericName:  props.Properties.Name,
			Dosage:       ExtractDosage(props.Properties.Name),
			Shape:        "unknown",
			Color:        "unknown",
			RxCUI:        candidate.RxCUI,
			Manufacturer: "Various",
			Source:       "RxNorm",
			Description:  "RxNorm ID: " + candidate.RxCUI,
		})

		if len(results) >= c.maxResults {
			break
		}
	}

	return results, nil
}

type fdaNDCResponse struct {
	Results []struct {
		BrandName         string `json:"brand_name"`
		GenericName       string `json:"generic_name"`
		ProductNDC        string `json:"product_ndc"`
		LabelerName       string `json:"labeler_name"`
		DosageForm        string `json:"dosage_form"`
		ActiveIngredients []struct {
			Strength string `json:"strength"`
		} `json:"active_ingredients"`
	} `json:"results"`
}

func (c *Client) searchFDA(ctx context.Context, name string) ([]DrugRecord, error) {
	params := url.Values{}
	params.Set("search", fmt.Sprintf(`(brand_name:"%s" OR generic_name:"%s")`, name, name))
	params.Set("limit", fmt.Sprintf("%d", c.maxResults))

	var payload fdaNDCResponse
	err := c.getJSON(ctx, c.fdaBaseURL+"/ndc.json?"+params.Encode(), &payload)
	if err != nil {
		return nil, err
	}

	return formatFDAResults(&payload), nil
}

func formatFDAResults(payload *fdaNDCResponse) []DrugRecord {
	results := make([]DrugRecord, 0, len(payload.Results))
	for _, item := range payload.Results {
		name := item.BrandName
		if name == "" {
			name = item.GenericName
		}
		if name == "" {
			name = "Unknown"
		}

		dosage := ""
		if len(item.ActiveIngredients) > 0 {
			dosage = item.ActiveIngredients[0].Strength
		}

		manufacturer := item.LabelerName
		if manufacturer == "" {
			manufacturer = "Unknown"
		}

		results = append(results, DrugRecord{
			Name:         name,
			GenericName:  item.GenericName,
			Dosage:       dosage,
			Shape:        "unknown",
			Color:        "unknown",
			NDCNumber:    item.ProductNDC,
			Manufacturer: manufacturer,
			Source:       "FDA",
			Description:  item.DosageForm,
		})
	}

	return results
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			return json.Unmarshal(body, dest)
		})
	})
}

var dosagePattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(mg|mcg|g|ml|%)`)

// ExtractDosage pulls a dosage like "10mg" or "5 ml" out of a medication
// name.
func ExtractDosage(name string) string {
	return dosagePattern.FindString(name)
}

func dedupeAndRank(results []DrugRecord, query string) []DrugRecord {
	type dedupeKey struct{ name, dosage, generic string }
	seen := make(map[dedupeKey]bool)

	unique := make([]DrugRecord, 0, len(results))
	for _, r := range results {
		key := dedupeKey{
			name:    strings.ToLower(r.Name),
			dosage:  strings.ToLower(r.Dosage),
			generic: strings.ToLower(r.GenericName),
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		r.Relevance = relevance(&r, query)
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Relevance > unique[j].Relevance
	})

	return unique
}

func relevance(r *DrugRecord, query string) float64 {
	q := strings.ToLower(query)
	name := strings.ToLower(r.Name)
	generic := strings.ToLower(r.GenericName)

	if q == name || q == generic {
		return 1.0
	}

	nameRatio := similarity(q, name)
	genericRatio := similarity(q, generic)
	if genericRatio > nameRatio {
		return genericRatio
	}
	return nameRatio
}

// similarity is a difflib-style ratio: twice the length of the longest
// common subsequence over the combined length.
func similarity(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}

	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}

	return 2.0 * float64(prev[lb]) / float64(la+lb)
}

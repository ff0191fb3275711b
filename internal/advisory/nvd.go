// Package advisory looks up public vulnerability advisories by keyword.
// Network failures degrade to an empty result set.
package advisory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

// DefaultNVDURL is the NVD CVE 2.0 REST endpoint.
const DefaultNVDURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// Advisory is a single keyword search hit.
type Advisory struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Score       *float64 `json:"score,omitempty"`
	CWE         string   `json:"cwe,omitempty"`
}

// Options configures an NVDClient.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// NVDClient searches the NVD CVE API.
type NVDClient struct {
	client *resty.Client
	logger hclog.Logger
}

// NewNVD creates a client. Zero options fall back to the public endpoint, a
// five second timeout and one retry.
func NewNVD(logger hclog.Logger, opts Options) *NVDClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultNVDURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	client := resty.New()
	client.SetLogger(NewHclogAdapter(logger))
	client.
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		client.SetHeader("apiKey", opts.APIKey)
	}
	return &NVDClient{client: client, logger: logger}
}

type nvdResponse struct {
	Vulnerabilities []struct {
		CVE struct {
			ID           string `json:"id"`
			Descriptions []struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"descriptions"`
			Metrics struct {
				V31 []nvdMetric `json:"cvssMetricV31"`
				V30 []nvdMetric `json:"cvssMetricV30"`
			} `json:"metrics"`
			Weaknesses []struct {
				Description []struct {
					Value string `json:"value"`
				} `json:"description"`
			} `json:"weaknesses"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdMetric struct {
	CVSSData struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// Search returns up to limit advisories matching keyword. On any transport or
// decoding failure it returns an empty result together with the error so the
// caller can record it.
func (c *NVDClient) Search(ctx context.Context, keyword string, limit int) ([]Advisory, error) {
	if keyword == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	var body nvdResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"keywordSearch":  keyword,
			"resultsPerPage": strconv.Itoa(limit),
		}).
		SetResult(&body).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("nvd search %q: %w", keyword, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("nvd search %q: status %d", keyword, resp.StatusCode())
	}
	out := make([]Advisory, 0, len(body.Vulnerabilities))
	for _, v := range body.Vulnerabilities {
		a := Advisory{ID: v.CVE.ID}
		for _, d := range v.CVE.Descriptions {
			if d.Lang == "en" || a.Description == "" {
				a.Description = d.Value
			}
		}
		metrics := v.CVE.Metrics.V31
		if len(metrics) == 0 {
			metrics = v.CVE.Metrics.V30
		}
		if len(metrics) > 0 {
			score := metrics[0].CVSSData.BaseScore
			a.Score = &score
		}
		if len(v.CVE.Weaknesses) > 0 && len(v.CVE.Weaknesses[0].Description) > 0 {
			a.CWE = v.CVE.Weaknesses[0].Description[0].Value
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	c.logger.Debug("nvd search", "keyword", keyword, "results", len(out))
	return out, nil
}

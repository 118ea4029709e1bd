package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobPageFixture = `<html><body>
<div class="jobs-unified-top-card__job-insight"><span>Hybrid</span><span>Full-time</span></div>
<div class="show-more-less-html__markup">
  <p>We build data pipelines at scale.</p>
  <p>You will own our Kafka and Spark infrastructure.</p>
</div>
<ul>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Seniority level</h3>
    <span class="description__job-criteria-text">Mid-Senior level</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Employment type</h3>
    <span class="description__job-criteria-text">Full-time</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Job function</h3>
    <span class="description__job-criteria-text">Engineering</span>
  </li>
</ul>
</body></html>`

func TestParseJobDetail(t *testing.T) {
	detail, err := parseJobDetail(jobPageFixture)
	require.NoError(t, err)

	assert.Equal(t, "We build data pipelines at scale. You will own our Kafka and Spark infrastructure.", detail.Description)
	assert.Equal(t, "Hybrid", detail.JobType, "first top-card insight span wins")
	assert.Equal(t, map[string]string{
		"seniority_level": "Mid-Senior level",
		"employment_type": "Full-time",
		"job_function":    "Engineering",
	}, detail.Criteria)
}

func TestParseJobDetail_FallbackSelector(t *testing.T) {
	html := `<html><body><div class="description__text">Plain description block.</div></body></html>`

	detail, err := parseJobDetail(html)
	require.NoError(t, err)
	assert.Equal(t, "Plain description block.", detail.Description)
	assert.Empty(t, detail.JobType)
	assert.Empty(t, detail.Criteria)
}

func TestParseJobDetail_NoDescription(t *testing.T) {
	_, err := parseJobDetail("<html><body><div>404</div></body></html>")
	assert.Error(t, err)
}

func TestNormalizeCriteriaKey(t *testing.T) {
	assert.Equal(t, "employment_type", normalizeCriteriaKey("Employment type"))
	assert.Equal(t, "seniority_level", normalizeCriteriaKey("  Seniority Level  "))
	assert.Equal(t, "industries", normalizeCriteriaKey("Industries"))
}

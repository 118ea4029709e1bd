package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasLoggedInMarkers(t *testing.T) {
	navPage := `<html><body>
<nav id="global-nav">
  <a class="global-nav__primary-link" href="/feed/">Home</a>
</nav>
</body></html>`
	railPage := `<html><body>
<div class="profile-rail-card"><span>Jane Doe</span></div>
</body></html>`
	anonPage := `<html><body>
<a href="/login">Sign in</a>
<form class="join-form"></form>
</body></html>`

	assert.True(t, hasLoggedInMarkers(navPage))
	assert.True(t, hasLoggedInMarkers(railPage))
	assert.False(t, hasLoggedInMarkers(anonPage))
	assert.False(t, hasLoggedInMarkers(""))
}

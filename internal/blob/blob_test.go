package blob

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	name := ObjectName("/generated/", now, ".png")

	pattern := regexp.MustCompile(`^generated/2024/03/09/[0-9a-f-]{36}\.png$`)
	assert.Regexp(t, pattern, name)
	assert.NotEqual(t, name, ObjectName("generated", now, "png"))
	assert.NoError(t, ValidateObjectName(name))
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "png", ExtensionFor("image/png"))
	assert.Equal(t, "jpg", ExtensionFor("IMAGE/JPEG"))
	assert.Equal(t, "webp", ExtensionFor("image/webp; q=1"))
	assert.Equal(t, "bin", ExtensionFor("application/pdf"))
}

func TestValidateObjectName(t *testing.T) {
	t.Parallel()

	valid := []string{"uploads/a.png", "a.png", "generated/2024/01/01/x.jpg"}
	for _, name := range valid {
		assert.NoError(t, ValidateObjectName(name), name)
	}

	invalid := []string{"", "  ", "/etc/passwd", "uploads/../secret", "a//b", "uploads/./a.png", "uploads/"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateObjectName(name), ErrInvalidObjectName, name)
	}
}

// AngelaMos | 2026
// code.go

package ticket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carterperez-dev/eventhub/internal/core"
)

const codeSuffixLen = 5

// CodePattern matches generated ticket codes.
var CodePattern = regexp.MustCompile(`^T-[0-9A-Z]+-[0-9A-Z]{5}$`)

// GenerateCode builds T-<unix millis base36>-<5 random base36>, upper case.
// Uniqueness is enforced by the store, not by this function.
func GenerateCode(now time.Time) (string, error) {
	suffix, err := core.RandomBase36(codeSuffixLen)
	if err != nil {
		return "", fmt.Errorf("generate ticket code: %w", err)
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return "T-" + stamp + "-" + suffix, nil
}

package response

import (
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentEscapesFilename(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, `gradebook-CS"101 x-2025S.csv`, "text/csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	disposition := w.Header().Get("Content-Disposition")
	assert.Equal(t, `attachment; filename="gradebook-CS\"101 x-2025S.csv"`, disposition)

	kind, params, err := mime.ParseMediaType(disposition)
	require.NoError(t, err)
	assert.Equal(t, "attachment", kind)
	assert.Equal(t, `gradebook-CS"101 x-2025S.csv`, params["filename"])
	assert.Equal(t, "a,b\n", w.Body.String())
}

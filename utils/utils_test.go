package utils

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "ab", NormalizeIdentity("  AB "))
	assert.Equal(t, "a@b.com", NormalizeIdentity("A@B.com"))
	// fullwidth letters fold to ASCII under NFKC
	assert.Equal(t, "ab", NormalizeIdentity("ＡＢ"))
}

func TestAnyBlank(t *testing.T) {
	assert.False(t, AnyBlank("a", "b"))
	assert.True(t, AnyBlank("a", "  "))
	assert.True(t, AnyBlank(""))
}

func TestIsDuplicateKey(t *testing.T) {
	we := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", we)))
	assert.True(t, IsDuplicateKey(mongo.CommandError{Code: 11000}))
	assert.True(t, IsDuplicateKey(errors.New("E11000 duplicate key error collection: users")))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestApiError(t *testing.T) {
	err := BadRequest("All fields are required", "fullName")
	assert.Equal(t, 400, err.StatusCode)
	assert.Equal(t, "All fields are required", err.Error())
	assert.Equal(t, []string{"fullName"}, err.Errors)

	assert.Equal(t, []string{}, Conflict("dup").Errors)
	assert.Equal(t, "Something went wrong", NewApiError(500, "").Message)
}

func TestNewApiResponse(t *testing.T) {
	ok := NewApiResponse(201, map[string]string{"a": "b"}, "")
	assert.True(t, ok.Success)
	assert.Equal(t, "Success", ok.Message)
	assert.False(t, NewApiResponse(404, nil, "nope").Success)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestFileValidator(t *testing.T) {
	v := NewImageValidator(1)

	mime, err := v.ValidateFile(fileHeader(t, "avatar.PNG", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = v.ValidateFile(fileHeader(t, "avatar.exe", pngHeader))
	assert.EqualError(t, err, "invalid file extension")

	_, err = v.ValidateFile(fileHeader(t, "avatar.png", []byte("plain text, not an image")))
	assert.EqualError(t, err, "invalid file type")

	_, err = v.ValidateFile(fileHeader(t, "avatar.png", append(pngHeader, make([]byte, 2<<20)...)))
	assert.EqualError(t, err, "file too large (max 1 MB)")
}

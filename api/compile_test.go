package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Drolfothesgnir/pagec/artifact"
	mockartifact "github.com/Drolfothesgnir/pagec/artifact/mock"
	"github.com/Drolfothesgnir/pagec/compiler"
	"github.com/Drolfothesgnir/pagec/diag"
)

func decodeCompileResponse(t *testing.T, recorder *httptest.ResponseRecorder) compileResponse {
	t.Helper()

	var res compileResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
	return res
}

func TestCompile(t *testing.T) {
	page := `<%@ taglib prefix="ui" tagdir="/WEB-INF/tags" %>
<%@ include file="/header.jspf" %>
<ui:card title="Hello">${greeting}</ui:card>
`
	key := artifact.Key("/index.jsp", "auto", []byte(page), testConfig.CompilerOptions())

	cached := &artifact.Artifact{
		Key:    key,
		Result: &compiler.Result{Unit: &compiler.Unit{Path: "/index.jsp", Source: "package pages\n"}},
	}

	testCases := []struct {
		name          string
		body          gin.H
		buildStubs    func(store *mockartifact.MockStore)
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder)
	}{
		{
			name: "EmptyBody",
			body: gin.H{},
			buildStubs: func(store *mockartifact.MockStore) {
				store.EXPECT().GetArtifact(gomock.Any(), gomock.Any()).Times(0)
				store.EXPECT().SaveArtifact(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				res, err := extractErrorFromBuffer(recorder.Body)
				require.NoError(t, err)
				require.Equal(t, ErrInvalidParams.Error(), res.Error)
				require.Len(t, res.Fields, 1)
				require.Equal(t, "source", res.Fields[0].FieldName)
				require.Equal(t, getBindingErrorMessage("required"), res.Fields[0].ErrorMessage)
			},
		},
		{
			name: "UnknownSyntax",
			body: gin.H{"source": "x", "syntax": "yaml"},
			buildStubs: func(store *mockartifact.MockStore) {
				store.EXPECT().GetArtifact(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				res, err := extractErrorFromBuffer(recorder.Body)
				require.NoError(t, err)
				require.Len(t, res.Fields, 1)
				require.Equal(t, "syntax", res.Fields[0].FieldName)
				require.Equal(t, getBindingErrorMessage("oneof"), res.Fields[0].ErrorMessage)
			},
		},
		{
			name: "RelativePath",
			body: gin.H{"source": "x", "path": "index.jsp"},
			buildStubs: func(store *mockartifact.MockStore) {
				store.EXPECT().GetArtifact(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				res, err := extractErrorFromBuffer(recorder.Body)
				require.NoError(t, err)
				require.Equal(t, "path", res.Fields[0].FieldName)
			},
		},
		{
			name: "Cached",
			body: gin.H{"source": page, "path": "/index.jsp"},
			buildStubs: func(store *mockartifact.MockStore) {
				store.EXPECT().GetArtifact(gomock.Any(), gomock.Eq(key)).Times(1).Return(cached, nil)
				store.EXPECT().SaveArtifact(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
				res := decodeCompileResponse(t, recorder)
				require.True(t, res.Cached)
				require.Equal(t, key, res.Key)
				require.Equal(t, "package pages\n", res.Result.Unit.Source)
			},
		},
		{
			name: "OK",
			body: gin.H{"source": page, "path": "/index.jsp"},
			buildStubs: func(store *mockartifact.MockStore) {
				store.EXPECT().GetArtifact(gomock.Any(), gomock.Eq(key)).Times(1).Return(nil, artifact.ErrArtifactNotFound)
				store.EXPECT().
					SaveArtifact(gomock.Any(), gomock.Eq(key), gomock.Any(), gomock.Eq(testConfig.ArtifactTTL)).
					Times(1).
					DoAndReturn(func(_ context.Context, _ string, a artifact.Artifact, _ time.Duration) error {
						require.Equal(t, key, a.Key)
						require.Equal(t, "IndexJsp", a.Result.Unit.TypeName)
						require.True(t, a.ExpiresAt.After(a.CreatedAt))
						return nil
					})
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
				require.NotEmpty(t, recorder.Header().Get(RequestIDHeader))

				res := decodeCompileResponse(t, recorder)
				require.False(t, res.Cached)
				require.Equal(t, key, res.Key)

				u := res.Result.Unit
				require.Equal(t, "index_jsp.go", u.FileName)
				require.Contains(t, u.Source, "package pages")
				require.Contains(t, u.SMAP, " header.jspf\n/header.jspf\n")

				require.Len(t, res.Result.Aux, 1)
				require.Equal(t, "CardTag", res.Result.Aux[0].TypeName)
			},
		},
		{
			name: "CacheUnavailable",
			body: gin.H{"source": "<p>${x}</p>", "syntax": "native"},
			buildStubs: func(store *mockartifact.MockStore) {
				store.EXPECT().GetArtifact(gomock.Any(), gomock.Any()).Times(1).Return(nil, errors.New("connection refused"))
				store.EXPECT().SaveArtifact(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1).Return(errors.New("connection refused"))
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
				res := decodeCompileResponse(t, recorder)
				require.Equal(t, "/page.jsp", res.Result.Unit.Path)
				require.Equal(t, "PageJsp", res.Result.Unit.TypeName)
			},
		},
		{
			name: "TranslationError",
			body: gin.H{"source": "<%@ taglib prefix=\"ui\" tagdir=\"/WEB-INF/tags\" %>\n<ui:card/>", "path": "/broken.jsp"},
			buildStubs: func(store *mockartifact.MockStore) {
				store.EXPECT().GetArtifact(gomock.Any(), gomock.Any()).Times(1).Return(nil, artifact.ErrArtifactNotFound)
				store.EXPECT().SaveArtifact(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
				res, err := extractErrorFromBuffer(recorder.Body)
				require.NoError(t, err)
				require.Equal(t, ErrTranslation.Error(), res.Error)
				require.Len(t, res.Errors, 1)
				require.Equal(t, "/broken.jsp", res.Errors[0].File)
				require.Equal(t, 2, res.Errors[0].Line)
				require.Equal(t, 1, res.Errors[0].Column)
				require.Equal(t, diag.IssueMissingAttribute.Key(), res.Errors[0].Key)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			store := mockartifact.NewMockStore(ctrl)

			tc.buildStubs(store)

			service := newTestService(t, store)
			recorder := httptest.NewRecorder()

			request := newJSONRequest(t, http.MethodPost, CompileURL, tc.body)

			service.router.ServeHTTP(recorder, request)
			tc.checkResponse(t, recorder)
		})
	}
}

package healthstore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/healthstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *healthstore.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := healthstore.NewClient(config.HealthStoreConfig{
		APIURL: server.URL,
		AppID:  "glucose-uploader",
		Token:  "test-token",
	})
	require.NoError(t, err)
	return client
}

// TestNewClient_Validation 测试配置校验
func TestNewClient_Validation(t *testing.T) {
	_, err := healthstore.NewClient(config.HealthStoreConfig{})
	assert.ErrorContains(t, err, "api_url")

	_, err = healthstore.NewClient(config.HealthStoreConfig{APIURL: "not a url"})
	assert.Error(t, err)

	client, err := healthstore.NewClient(config.HealthStoreConfig{APIURL: "http://localhost:9200"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

// TestClient_GetGrantedPermissions 测试授权查询
func TestClient_GetGrantedPermissions(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/permissions/granted", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"permissions": []string{"health.blood_glucose.read", "health.blood_glucose.write"},
		})
	}))

	perms, err := client.GetGrantedPermissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"health.blood_glucose.read", "health.blood_glucose.write"}, perms)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

// TestClient_GetGrantedPermissions_ServerError 测试非 2xx 响应转为错误
func TestClient_GetGrantedPermissions_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GetGrantedPermissions(context.Background())
	assert.ErrorContains(t, err, "status 500")
}

// TestClient_RequestPermissions 测试权限申请请求体
func TestClient_RequestPermissions(t *testing.T) {
	var body map[string]interface{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/permissions/request", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	}))

	err := client.RequestPermissions(context.Background(), []string{"health.blood_glucose.read"})
	require.NoError(t, err)

	assert.Equal(t, "glucose-uploader", body["app_id"])
	assert.Equal(t, []interface{}{"health.blood_glucose.read"}, body["permissions"])
}

// TestClient_RevokeAllPermissions 测试撤销请求
func TestClient_RevokeAllPermissions(t *testing.T) {
	var called bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/permissions/revoke", r.URL.Path)
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.RevokeAllPermissions(context.Background()))
	assert.True(t, called)
}

// TestClient_WriteRecords 测试记录写入与写入条数解析
func TestClient_WriteRecords(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/records/glucose", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		records := body["records"].([]interface{})

		json.NewEncoder(w).Encode(map[string]int{"inserted": len(records)})
	}))

	records := []healthstore.GlucoseRecord{
		{Time: time.Now(), ValueMgdl: 95},
		{Time: time.Now(), ValueMgdl: 120},
	}

	inserted, err := client.WriteRecords(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

// TestClient_WriteRecords_Empty 测试空记录集不发请求
func TestClient_WriteRecords_Empty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty record set")
	}))

	inserted, err := client.WriteRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

// TestClient_Ping 测试可达性探测
func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/ping", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	assert.NoError(t, client.Ping(context.Background()))
	assert.True(t, client.CheckHealth(context.Background()))
}

// TestClient_CheckHealth_Unreachable 测试不可达时健康检查为否
func TestClient_CheckHealth_Unreachable(t *testing.T) {
	client, err := healthstore.NewClient(config.HealthStoreConfig{
		APIURL:  "http://127.0.0.1:1",
		Timeout: 1,
	})
	require.NoError(t, err)

	assert.False(t, client.CheckHealth(context.Background()))
}

// Package config loads the broker's configuration from environment
// variables.
//
// Every variable carries a QAUTH_ prefix. A handful of legacy names
// (QLIK_PROXY_SERVICE, QLIK_CERTS_PATH, QLIK_XRFKEY, GOOGLE_CLIENT_ID,
// GOOGLE_CLIENT_SECRET, FB_APP_ID, FB_APP_SECRET, REDIS_URL) are honored as
// fallbacks so existing deployments keep working; the prefixed name always
// wins.
//
// Core settings:
//
//	QAUTH_QLIK_PROXY_SERVICE  base URL of the proxy service auth module,
//	                          e.g. https://qlik.internal:4243/qps/qauth/
//	QAUTH_QLIK_CERTS_PATH     directory with client.pem, client_key.pem
//	                          and root.pem exported from Qlik
//	QAUTH_QLIK_XRFKEY         16-character anti-forgery key
//	QAUTH_REDIS_URL           session store, e.g. redis://host:6379/0
//	QAUTH_EXTERNAL_URL        public base URL of the broker, used to build
//	                          provider callback URLs
//
// At least one identity provider (Google, Facebook or SAML) must be
// configured.
package config

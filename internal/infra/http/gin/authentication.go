package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"xrent/internal/domain/account"
)

const (
	walletHeader     = "X-Wallet-Key"
	walletContextKey = "xrent.wallet"
)

// WalletMiddleware records the caller's wallet key when the header is
// present. Any non-empty key is accepted; signing happens in the wallet.
func WalletMiddleware(c *gin.Context) {
	if key, err := account.ParseKey(c.GetHeader(walletHeader)); err == nil {
		c.Set(walletContextKey, key)
	}
	c.Next()
}

func currentWallet(c *gin.Context) (account.Key, bool) {
	val, exists := c.Get(walletContextKey)
	if !exists {
		return "", false
	}
	key, ok := val.(account.Key)
	return key, ok && !key.IsZero()
}

func requireWallet(c *gin.Context) (account.Key, bool) {
	key, ok := currentWallet(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet key required"})
		return "", false
	}
	return key, true
}

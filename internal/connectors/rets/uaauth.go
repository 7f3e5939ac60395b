package rets

import (
	"crypto/md5"
	"encoding/hex"
)

// UserAgentDigest computes the RETS 1.7 RETS-UA-Authorization header value:
//
//	Digest md5(md5(UA:UAPassword):RequestID:SessionID:Version)
func UserAgentDigest(userAgent, uaPassword, requestID, sessionID, version string) string {
	a1 := md5hex(userAgent + ":" + uaPassword)
	return "Digest " + md5hex(a1+":"+requestID+":"+sessionID+":"+version)
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

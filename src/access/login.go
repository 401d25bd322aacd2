package access

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix"
	"github.com/jom-io/gorig/cache"
	"github.com/jom-io/gorig/global/consts"
	"github.com/jom-io/gorig/global/variable"
	"github.com/jom-io/gorig/mid/tokenx"
	configure "github.com/jom-io/gorig/utils/cofigure"
	"github.com/jom-io/gorig/utils/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	userPrefix  = "MON"
	maxFailures = 5
	lockFor     = 10 * time.Minute
	tokenTTL    = time.Hour
	failureSet  = "monLoginFailures"
)

type loginFailures struct {
	Count    int    `json:"count"`
	IP       string `json:"ip"`
	LockTime int64  `json:"lock_time"`
}

// Key returns the access key of the monitoring endpoints. An empty key
// disables them.
func Key() string {
	if key := configure.GetString("mon.access.key", ""); key != "" {
		return key
	}
	return variable.OMKey
}

func Login(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	pwd, e := apix.GetParamType[string](ctx, "pwd", apix.Force)
	if e != nil {
		return
	}
	result, err := LoginByPwd(ctx, pwd)
	apix.HandleData(ctx, consts.CurdSelectFailCode, result, err)
}

// LoginByPwd accepts a bcrypt hash of "<unix seconds / 10><key>" and returns
// a token valid for an hour.
func LoginByPwd(ctx *gin.Context, hashPwd string) (*string, *errors.Error) {
	key := Key()
	if key == "" {
		return nil, errors.Verify("Connection rejected")
	}
	userID := fmt.Sprintf("%s-%s", userPrefix, ctx.ClientIP())
	failures := cache.New[loginFailures](cache.JSON, failureSet)

	record, _ := failures.Get(userID)
	now := time.Now()
	if record.Count >= maxFailures {
		if now.Unix() < record.LockTime {
			return nil, errors.Verify(lockedMessage(record.LockTime, now))
		}
		record.Count = 0
		record.LockTime = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashPwd), []byte(Password(key, now))); err != nil {
		record.Count++
		record.IP = ctx.ClientIP()
		if record.Count >= maxFailures {
			record.LockTime = now.Add(lockFor).Unix()
			_ = failures.Set(userID, record, 0)
			return nil, errors.Verify(lockedMessage(record.LockTime, now))
		}
		_ = failures.Set(userID, record, 0)
		return nil, errors.Verify(fmt.Sprintf("Login failed, %d attempts left", maxFailures-record.Count))
	}

	_ = failures.Del(userID)
	token, e := tokenx.Get(tokenx.Jwt, tokenx.Memory).Manager.GenerateAndRecord(ctx, userID, nil, now.Add(tokenTTL).Unix())
	if e != nil {
		return nil, e
	}
	return &token, nil
}

// Password is the plain text a client hashes to log in at the given time.
func Password(key string, at time.Time) string {
	return fmt.Sprintf("%d%s", at.Unix()/10, key)
}

func lockedMessage(lockTime int64, now time.Time) string {
	return fmt.Sprintf("Connection rejected, please try again after %d minutes", (lockTime-now.Unix())/60+1)
}

func IsMonitor(userID string) bool {
	return strings.HasPrefix(userID, userPrefix+"-")
}

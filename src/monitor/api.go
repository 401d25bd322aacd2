package monitor

import (
	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix"
	"github.com/jom-io/gorig/global/consts"
)

func App(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	apix.HandleData(ctx, consts.CurdSelectFailCode, S().ApplicationInfo(), nil)
}

func Snapshot(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	data, e := S().Statistics(ctx)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func Requests(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	window, err := apix.GetParamStr(ctx, "window")
	if err != nil {
		return
	}

	data, e := S().Requests(ctx, window)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func URIs(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	window, err := apix.GetParamStr(ctx, "window", "all")
	if err != nil {
		return
	}

	data, e := S().URIs(ctx, window)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func URI(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	path, err := apix.GetParamForce(ctx, "path")
	if err != nil {
		return
	}

	data, e := S().URI(ctx, path)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func Classes(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	window, err := apix.GetParamStr(ctx, "window", "all")
	if err != nil {
		return
	}

	data, e := S().Classes(ctx, window)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func Responses(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	data, e := S().Responses(ctx)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

func Exceptions(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	data, e := S().Exceptions(ctx)
	apix.HandleData(ctx, consts.CurdSelectFailCode, data, e)
}

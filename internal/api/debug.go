package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/tailscale/tailsql/server/tailsql"

	"github.com/jengzang/simplegis/internal/database"
)

const debugSQLPrefix = "/debug/tailsql/"

// mountDebugSQL serves an interactive SQL console over the source pool
func mountDebugSQL(r gin.IRoutes, src database.Source) error {
	backed, ok := src.(database.SQLBacked)
	if !ok {
		return fmt.Errorf("source %q has no sql pool", src.Kind())
	}

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: debugSQLPrefix,
	})
	if err != nil {
		return err
	}
	tsql.SetDB(src.Kind()+"://source", backed.DB(), &tailsql.DBOptions{
		Label: "Query source (" + src.Kind() + ")",
	})

	r.Any(debugSQLPrefix+"*path", gin.WrapH(tsql.NewMux()))
	return nil
}

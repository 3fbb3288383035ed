// Package timeutil provides a restartable watchdog timer used to guard blocking reads.
//
// A Watchdog fires its callback once when it is not kicked within the configured period:
//
//	wd := timeutil.NewWatchdog(8*time.Second, func() { conn.Close() })
//	defer wd.Stop()
//	for {
//	    wd.Kick()
//	    n, err := conn.Read(buf)
//	    ...
//	}
package timeutil

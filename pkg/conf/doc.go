/*
Package conf extends the builtin 'flag' package to provide:
- environment parsing with a predefined prefix,
- duplicate flag definition checks,
- ability to extract current values of all registered flags,
- additional flag types, e.g. IntListFlag,
- a predefined flag for logging (logrus integration).

Every flag can be supplied either on the command line or through an
environment variable derived from the flag name. For instance the
"stack" flag is read from LAMBDA_BENCH_STACK.
*/
package conf
